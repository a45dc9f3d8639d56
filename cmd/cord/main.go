// Command cord coordinates a tree of LLM-agent subprocesses toward a
// single top-level goal.
package main

func main() {
	Execute()
}
