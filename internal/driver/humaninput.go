package driver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/kimjune01/cord/internal/corddebug"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

// HumanStation is the Driver's human-input channel: it displays
// ask(target=human) questions and accepts an answer either typed at
// stdin or dropped as a file in AnswersDir, then writes the answer as
// the ask node's result and completes it. The file-drop path keeps
// headless runs answerable.
type HumanStation struct {
	Store      *store.Store
	AnswersDir string
	Stdin      io.Reader
	Out        io.Writer
	Log        *corddebug.Logger

	mu      sync.Mutex
	waiting map[int64]chan string
	started bool
}

// NewHumanStation constructs a station reading from os.Stdin and writing
// prompts to os.Stderr.
func NewHumanStation(st *store.Store, answersDir string, log *corddebug.Logger) *HumanStation {
	return &HumanStation{
		Store:      st,
		AnswersDir: answersDir,
		Stdin:      os.Stdin,
		Out:        os.Stderr,
		Log:        log,
		waiting:    map[int64]chan string{},
	}
}

// Deliver implements scheduler.HumanAsker: it prints the question and
// begins waiting for an answer from either input source.
func (h *HumanStation) Deliver(n *cordmodel.Node) error {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	fmt.Fprintf(h.Out, "\n%s\n", cyan.Sprintf("? %s", n.Goal))
	if n.Ask != nil && len(n.Ask.Options) > 0 {
		fmt.Fprintf(h.Out, "  %s\n", dim.Sprintf("options: %s", strings.Join(n.Ask.Options, ", ")))
	}
	if n.Ask != nil && n.Ask.Default != "" {
		fmt.Fprintf(h.Out, "  %s\n", dim.Sprintf("default: %s", n.Ask.Default))
	}

	answerCh := make(chan string, 1)
	h.mu.Lock()
	h.waiting[n.ID] = answerCh
	h.mu.Unlock()

	if err := h.ensureWatcher(); err != nil {
		h.Log.Debugf("human-input file watcher unavailable: %v", err)
	}

	go h.readStdinLine(n.ID, answerCh)

	go func() {
		var answer string
		var timeout <-chan time.Time
		if n.Ask != nil && n.Ask.TimeoutSeconds > 0 {
			timeout = time.After(time.Duration(n.Ask.TimeoutSeconds) * time.Second)
		}
		select {
		case answer = <-answerCh:
		case <-timeout:
		}
		if answer == "" && n.Ask != nil {
			answer = n.Ask.Default
		}
		if answer == "" {
			answer = "(no answer)"
		}
		if err := h.Store.Transition(n.ID, cordmodel.StatusActive, cordmodel.StatusComplete, &answer); err != nil {
			h.Log.Debugf("complete ask %s: %v", cordmodel.RenderID(n.ID), err)
		}
		h.mu.Lock()
		delete(h.waiting, n.ID)
		h.mu.Unlock()
	}()

	return nil
}

func (h *HumanStation) readStdinLine(id int64, answerCh chan<- string) {
	fmt.Fprint(h.Out, "> ")
	reader := bufio.NewReader(h.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return
	}
	h.deliverAnswer(id, strings.TrimSpace(line))
}

// deliverAnswer sends ans to the waiting channel for id, if one is still
// registered; the first of stdin/file-drop to arrive wins.
func (h *HumanStation) deliverAnswer(id int64, ans string) {
	h.mu.Lock()
	ch, ok := h.waiting[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- ans:
	default:
	}
}

// ensureWatcher lazily starts an fsnotify watch on AnswersDir, reading
// any later-dropped file named "<id>.txt" as that node's answer.
func (h *HumanStation) ensureWatcher() error {
	h.mu.Lock()
	if h.started || h.AnswersDir == "" {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.mu.Unlock()

	if err := os.MkdirAll(h.AnswersDir, 0o755); err != nil {
		return fmt.Errorf("create answers dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start answers watcher: %w", err)
	}
	if err := watcher.Add(h.AnswersDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch answers dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for event := range watcher.Events {
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			id, ok := parseAnswerFilename(event.Name)
			if !ok {
				continue
			}
			data, err := os.ReadFile(event.Name)
			if err != nil {
				continue
			}
			h.deliverAnswer(id, strings.TrimSpace(string(data)))
		}
	}()
	return nil
}

func parseAnswerFilename(path string) (int64, bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
