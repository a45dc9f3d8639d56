package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kimjune01/cord/pkg/cordmodel"
)

// CreateRoot inserts the singleton goal node. It fails with ErrAlreadyExists
// if a root already exists.
func (s *Store) CreateRoot(goal, prompt string, returns cordmodel.Returns) (int64, error) {
	var id int64
	err := s.Transaction(func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE parent_id IS NULL`).Scan(&count); err != nil {
			return fmt.Errorf("check existing root: %w", err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}

		now := nowTicks()
		res, err := tx.Exec(
			`INSERT INTO nodes (kind, parent_id, ordinal, goal, prompt, returns, status, created_at, updated_at)
			 VALUES (?, NULL, 0, ?, ?, ?, 'pending', ?, ?)`,
			string(cordmodel.KindGoal), goal, prompt, string(returns), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert root: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// CreateChild atomically verifies parent_id exists, verifies every needs
// target is either a descendant of parent_id or a prior sibling of the new
// node, inserts the node at the next ordinal under parent_id, and inserts
// the dependency edges.
func (s *Store) CreateChild(parentID int64, kind cordmodel.Kind, goal, prompt string, returns cordmodel.Returns, needs []int64) (int64, error) {
	var id int64
	err := s.Transaction(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE id = ?`, parentID).Scan(&exists); err != nil {
			return fmt.Errorf("check parent: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		var maxOrdinal sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(ordinal) FROM nodes WHERE parent_id = ?`, parentID).Scan(&maxOrdinal); err != nil {
			return fmt.Errorf("read sibling ordinals: %w", err)
		}
		ordinal := 0
		if maxOrdinal.Valid {
			ordinal = int(maxOrdinal.Int64) + 1
		}

		for _, depID := range needs {
			ok, err := needsTargetPermitted(tx, parentID, ordinal, depID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: node %s is not a descendant of the new node's parent or a prior sibling", ErrInvalidNeeds, cordmodel.RenderID(depID))
			}
		}

		now := nowTicks()
		res, err := tx.Exec(
			`INSERT INTO nodes (kind, parent_id, ordinal, goal, prompt, returns, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
			string(kind), parentID, ordinal, goal, prompt, string(returns), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert child: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}

		for _, depID := range needs {
			if _, err := tx.Exec(`INSERT INTO dependencies (node_id, depends_on) VALUES (?, ?)`, id, depID); err != nil {
				return fmt.Errorf("insert dependency edge: %w", err)
			}
		}

		// A serial node's (k+1)th child implicitly needs the kth child.
		if ordinal > 0 {
			var parentKind string
			if err := tx.QueryRow(`SELECT kind FROM nodes WHERE id = ?`, parentID).Scan(&parentKind); err != nil {
				return fmt.Errorf("read parent kind: %w", err)
			}
			if cordmodel.Kind(parentKind) == cordmodel.KindSerial {
				var priorID int64
				if err := tx.QueryRow(`SELECT id FROM nodes WHERE parent_id = ? AND ordinal = ?`, parentID, ordinal-1).Scan(&priorID); err != nil {
					return fmt.Errorf("read prior serial sibling: %w", err)
				}
				if _, err := tx.Exec(`INSERT OR IGNORE INTO dependencies (node_id, depends_on) VALUES (?, ?)`, id, priorID); err != nil {
					return fmt.Errorf("insert implicit serial edge: %w", err)
				}
			}
		}

		return nil
	})
	return id, err
}

// needsTargetPermitted reports whether depID may be named in a new node's
// needs list: it must be a descendant of parentID, or a prior sibling
// (same parent, ordinal strictly less than the new node's ordinal).
func needsTargetPermitted(tx *sql.Tx, parentID int64, newOrdinal int, depID int64) (bool, error) {
	var depParent sql.NullInt64
	var depOrdinal int
	err := tx.QueryRow(`SELECT parent_id, ordinal FROM nodes WHERE id = ?`, depID).Scan(&depParent, &depOrdinal)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read needs target: %w", err)
	}

	if depParent.Valid && depParent.Int64 == parentID && depOrdinal < newOrdinal {
		return true, nil
	}

	return isDescendantTx(tx, parentID, depID)
}

// CreateAsk inserts an ask node under parentID with the given question and
// routing metadata. Unlike CreateChild, the parent may be the caller's own
// parent (the target=parent escalation case), so the caller resolves
// parentID itself rather than this method assuming parent == caller.
func (s *Store) CreateAsk(parentID int64, question string, ask cordmodel.AskMeta) (int64, error) {
	var id int64
	err := s.Transaction(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE id = ?`, parentID).Scan(&exists); err != nil {
			return fmt.Errorf("check parent: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		var maxOrdinal sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(ordinal) FROM nodes WHERE parent_id = ?`, parentID).Scan(&maxOrdinal); err != nil {
			return fmt.Errorf("read sibling ordinals: %w", err)
		}
		ordinal := 0
		if maxOrdinal.Valid {
			ordinal = int(maxOrdinal.Int64) + 1
		}

		optionsJSON := "[]"
		if len(ask.Options) > 0 {
			b, err := json.Marshal(ask.Options)
			if err != nil {
				return fmt.Errorf("marshal ask options: %w", err)
			}
			optionsJSON = string(b)
		}

		now := nowTicks()
		res, err := tx.Exec(
			`INSERT INTO nodes (kind, parent_id, ordinal, goal, prompt, returns, status, created_at, updated_at,
			                    ask_target, ask_options, ask_default, ask_timeout_seconds)
			 VALUES (?, ?, ?, ?, '', 'text', 'pending', ?, ?, ?, ?, ?, ?)`,
			string(cordmodel.KindAsk), parentID, ordinal, question, now, now,
			string(ask.Target), optionsJSON, ask.Default, nullableInt(ask.TimeoutSeconds),
		)
		if err != nil {
			return fmt.Errorf("insert ask node: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// Transition performs a CAS on status: it succeeds only if the node's
// current status equals fromStatus. result is accepted only for the
// active -> complete transition. An existing result is not protected: a
// later active -> complete (a synthesis relaunch) replaces it.
func (s *Store) Transition(id int64, fromStatus, toStatus cordmodel.Status, result *string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRow(`SELECT status FROM nodes WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		if cordmodel.Status(current) != fromStatus {
			return ErrConflict
		}

		if result != nil && !(fromStatus == cordmodel.StatusActive && toStatus == cordmodel.StatusComplete) {
			return fmt.Errorf("%w: result may only be written on the active -> complete transition", ErrInvalidStatus)
		}

		now := nowTicks()
		if result != nil {
			_, err = tx.Exec(`UPDATE nodes SET status = ?, result = ?, updated_at = ? WHERE id = ?`, string(toStatus), *result, now, id)
		} else {
			_, err = tx.Exec(`UPDATE nodes SET status = ?, updated_at = ? WHERE id = ?`, string(toStatus), now, id)
		}
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

// PrepareSynthesis transitions a completed parent back to pending for its
// one-time synthesis relaunch, setting the synthesized flag in the same
// transaction so a concurrent scheduler tick can never trigger it twice.
// Fails with ErrConflict if the node is not currently complete, and with
// ErrInvalidStatus if it has already entered its synthesis phase.
func (s *Store) PrepareSynthesis(id int64) error {
	return s.Transaction(func(tx *sql.Tx) error {
		var status string
		var synthesized int
		err := tx.QueryRow(`SELECT status, synthesized FROM nodes WHERE id = ?`, id).Scan(&status, &synthesized)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read node for synthesis: %w", err)
		}
		if cordmodel.Status(status) != cordmodel.StatusComplete {
			return ErrConflict
		}
		if synthesized != 0 {
			return ErrInvalidStatus
		}

		now := nowTicks()
		if _, err := tx.Exec(`UPDATE nodes SET status = 'pending', synthesized = 1, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("prepare synthesis: %w", err)
		}
		return nil
	})
}

// CascadeCancel marks id and every non-terminal descendant cancelled in a
// single transaction and returns the ids that were active at the time, so
// the caller can deliver terminate signals to their live processes.
// Already-terminal nodes are left untouched, which makes a repeated cancel
// a no-op.
func (s *Store) CascadeCancel(id int64) (wasActive []int64, err error) {
	err = s.Transaction(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check cancel target: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		children := map[int64][]int64{}
		rows, err := tx.Query(`SELECT id, parent_id FROM nodes WHERE parent_id IS NOT NULL`)
		if err != nil {
			return fmt.Errorf("query nodes for cascade: %w", err)
		}
		for rows.Next() {
			var nid, pid int64
			if err := rows.Scan(&nid, &pid); err != nil {
				rows.Close()
				return fmt.Errorf("scan node for cascade: %w", err)
			}
			children[pid] = append(children[pid], nid)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		targets := []int64{id}
		for i := 0; i < len(targets); i++ {
			targets = append(targets, children[targets[i]]...)
		}

		now := nowTicks()
		for _, t := range targets {
			var status string
			if err := tx.QueryRow(`SELECT status FROM nodes WHERE id = ?`, t).Scan(&status); err != nil {
				return fmt.Errorf("read status for cascade: %w", err)
			}
			st := cordmodel.Status(status)
			if st.Terminal() {
				continue
			}
			if st == cordmodel.StatusActive {
				wasActive = append(wasActive, t)
			}
			if _, err := tx.Exec(`UPDATE nodes SET status = 'cancelled', updated_at = ? WHERE id = ?`, now, t); err != nil {
				return fmt.Errorf("cancel %s: %w", cordmodel.RenderID(t), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wasActive, nil
}

// Modify updates goal and/or prompt. Permitted only if the node's current
// status is pending or paused.
func (s *Store) Modify(id int64, goal, prompt *string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRow(`SELECT status FROM nodes WHERE id = ?`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		st := cordmodel.Status(status)
		if st != cordmodel.StatusPending && st != cordmodel.StatusPaused {
			return ErrInvalidStatus
		}

		if goal == nil && prompt == nil {
			return nil
		}
		if goal != nil {
			if _, err := tx.Exec(`UPDATE nodes SET goal = ?, updated_at = ? WHERE id = ?`, *goal, nowTicks(), id); err != nil {
				return fmt.Errorf("update goal: %w", err)
			}
		}
		if prompt != nil {
			if _, err := tx.Exec(`UPDATE nodes SET prompt = ?, updated_at = ? WHERE id = ?`, *prompt, nowTicks(), id); err != nil {
				return fmt.Errorf("update prompt: %w", err)
			}
		}
		return nil
	})
}

// ReadySet returns pending nodes whose every needs target is complete and
// which are either the goal root itself or have an active parent.
func (s *Store) ReadySet() ([]int64, error) {
	var ready []int64
	err := s.readLocked(func() error {
		rows, err := s.conn.Query(`
			SELECT n.id FROM nodes n
			WHERE n.status = 'pending'
			AND NOT EXISTS (
				SELECT 1 FROM dependencies d
				JOIN nodes dep ON dep.id = d.depends_on
				WHERE d.node_id = n.id AND dep.status != 'complete'
			)
			AND (
				n.parent_id IS NULL
				OR EXISTS (SELECT 1 FROM nodes p WHERE p.id = n.parent_id AND p.status = 'active')
			)
			ORDER BY n.id
		`)
		if err != nil {
			return fmt.Errorf("query ready set: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan ready set row: %w", err)
			}
			ready = append(ready, id)
		}
		return rows.Err()
	})
	return ready, err
}

// Subtree returns the transitive descendants of id (not including id
// itself), used for authority checks. CascadeCancel walks the tree itself
// inside its own transaction.
func (s *Store) Subtree(id int64) ([]int64, error) {
	var ids []int64
	err := s.readLocked(func() error {
		children := map[int64][]int64{}
		rows, err := s.conn.Query(`SELECT id, parent_id FROM nodes`)
		if err != nil {
			return fmt.Errorf("query nodes for subtree: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var nid int64
			var pid sql.NullInt64
			if err := rows.Scan(&nid, &pid); err != nil {
				return fmt.Errorf("scan node for subtree: %w", err)
			}
			if pid.Valid {
				children[pid.Int64] = append(children[pid.Int64], nid)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		var walk func(int64)
		walk = func(cur int64) {
			for _, c := range children[cur] {
				ids = append(ids, c)
				walk(c)
			}
		}
		walk(id)
		return nil
	})
	return ids, err
}

// IsAncestor reports whether a is an ancestor of b.
func (s *Store) IsAncestor(a, b int64) (bool, error) {
	var result bool
	err := s.readLocked(func() error {
		var err error
		result, err = isDescendantConn(s.conn, a, b)
		return err
	})
	return result, err
}

func isDescendantTx(tx *sql.Tx, ancestor, node int64) (bool, error) {
	cur := node
	for {
		var pid sql.NullInt64
		err := tx.QueryRow(`SELECT parent_id FROM nodes WHERE id = ?`, cur).Scan(&pid)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("walk ancestors: %w", err)
		}
		if !pid.Valid {
			return false, nil
		}
		if pid.Int64 == ancestor {
			return true, nil
		}
		cur = pid.Int64
	}
}

func isDescendantConn(conn *sql.DB, ancestor, node int64) (bool, error) {
	cur := node
	for {
		var pid sql.NullInt64
		err := conn.QueryRow(`SELECT parent_id FROM nodes WHERE id = ?`, cur).Scan(&pid)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("walk ancestors: %w", err)
		}
		if !pid.Valid {
			return false, nil
		}
		if pid.Int64 == ancestor {
			return true, nil
		}
		cur = pid.Int64
	}
}

// GetNode returns a single node by id.
func (s *Store) GetNode(id int64) (*cordmodel.Node, error) {
	var n *cordmodel.Node
	err := s.readLocked(func() error {
		var err error
		n, err = scanNode(s.conn.QueryRow(selectNodes+`WHERE id = ?`, id))
		return err
	})
	return n, err
}

// Children returns the direct children of id in ordinal order.
func (s *Store) Children(id int64) ([]*cordmodel.Node, error) {
	var out []*cordmodel.Node
	err := s.readLocked(func() error {
		rows, err := s.conn.Query(selectNodes+`WHERE parent_id = ? ORDER BY ordinal`, id)
		if err != nil {
			return fmt.Errorf("query children: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			n, err := scanNodeRows(rows)
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	return out, err
}

// NeedsOf returns the ids a node depends on.
func (s *Store) NeedsOf(id int64) ([]int64, error) {
	var out []int64
	err := s.readLocked(func() error {
		rows, err := s.conn.Query(`SELECT depends_on FROM dependencies WHERE node_id = ? ORDER BY depends_on`, id)
		if err != nil {
			return fmt.Errorf("query needs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var dep int64
			if err := rows.Scan(&dep); err != nil {
				return err
			}
			out = append(out, dep)
		}
		return rows.Err()
	})
	return out, err
}

// AncestorChain returns the ancestors of id from the root down to (but not
// including) id itself, used by the Prompt Assembler's goal-chain section.
func (s *Store) AncestorChain(id int64) ([]*cordmodel.Node, error) {
	var chain []*cordmodel.Node
	err := s.readLocked(func() error {
		var ids []int64
		cur := id
		for {
			var pid sql.NullInt64
			err := s.conn.QueryRow(`SELECT parent_id FROM nodes WHERE id = ?`, cur).Scan(&pid)
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("walk ancestors: %w", err)
			}
			if !pid.Valid {
				break
			}
			ids = append(ids, pid.Int64)
			cur = pid.Int64
		}
		for i := len(ids) - 1; i >= 0; i-- {
			n, err := scanNode(s.conn.QueryRow(selectNodes+`WHERE id = ?`, ids[i]))
			if err != nil {
				return err
			}
			chain = append(chain, n)
		}
		return nil
	})
	return chain, err
}

// SynthesisCandidates returns the ids of parents eligible for a synthesis
// relaunch: status complete, not yet synthesized, with at least one child
// and every child in a terminal status.
func (s *Store) SynthesisCandidates() ([]int64, error) {
	var ids []int64
	err := s.readLocked(func() error {
		rows, err := s.conn.Query(`
			SELECT n.id FROM nodes n
			WHERE n.status = 'complete'
			AND n.synthesized = 0
			AND EXISTS (SELECT 1 FROM nodes c WHERE c.parent_id = n.id)
			AND NOT EXISTS (
				SELECT 1 FROM nodes c
				WHERE c.parent_id = n.id AND c.status NOT IN ('complete', 'cancelled', 'failed')
			)
			ORDER BY n.id
		`)
		if err != nil {
			return fmt.Errorf("query synthesis candidates: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// Root returns the goal root node.
func (s *Store) Root() (*cordmodel.Node, error) {
	var n *cordmodel.Node
	err := s.readLocked(func() error {
		var err error
		n, err = scanNode(s.conn.QueryRow(selectNodes + `WHERE parent_id IS NULL LIMIT 1`))
		return err
	})
	return n, err
}

// Terminated reports whether every node has reached a terminal status and
// the goal root itself is terminal, the condition under which the
// Scheduler reports the run as done.
func (s *Store) Terminated() (bool, error) {
	var done bool
	err := s.readLocked(func() error {
		var total, terminal int
		if err := s.conn.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&total); err != nil {
			return fmt.Errorf("count nodes: %w", err)
		}
		if err := s.conn.QueryRow(`SELECT COUNT(*) FROM nodes WHERE status IN ('complete','cancelled','failed')`).Scan(&terminal); err != nil {
			return fmt.Errorf("count terminal nodes: %w", err)
		}
		if total == 0 {
			done = false
			return nil
		}
		done = total == terminal
		return nil
	})
	return done, err
}

// Snapshot returns a consistent read of the full tree rooted at the goal
// node, used for read_tree.
func (s *Store) Snapshot() (*cordmodel.Tree, error) {
	var tree *cordmodel.Tree
	err := s.readLocked(func() error {
		rows, err := s.conn.Query(selectNodes + `ORDER BY id`)
		if err != nil {
			return fmt.Errorf("query snapshot nodes: %w", err)
		}
		all := map[int64]*cordmodel.Tree{}
		var order []int64
		for rows.Next() {
			n, err := scanNodeRows(rows)
			if err != nil {
				rows.Close()
				return err
			}
			all[n.ID] = &cordmodel.Tree{Node: *n}
			order = append(order, n.ID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		depRows, err := s.conn.Query(`SELECT node_id, depends_on FROM dependencies`)
		if err != nil {
			return fmt.Errorf("query snapshot dependencies: %w", err)
		}
		defer depRows.Close()
		for depRows.Next() {
			var nodeID, dep int64
			if err := depRows.Scan(&nodeID, &dep); err != nil {
				return err
			}
			if t, ok := all[nodeID]; ok {
				t.BlockedBy = append(t.BlockedBy, dep)
			}
		}
		if err := depRows.Err(); err != nil {
			return err
		}

		var root *cordmodel.Tree
		for _, id := range order {
			t := all[id]
			sort.Slice(t.BlockedBy, func(i, j int) bool { return t.BlockedBy[i] < t.BlockedBy[j] })
			if t.ParentID == nil {
				root = t
				continue
			}
			if parent, ok := all[*t.ParentID]; ok {
				parent.Children = append(parent.Children, t)
			}
		}
		if root == nil {
			return ErrNotFound
		}
		tree = root
		return nil
	})
	return tree, err
}

const selectNodes = `
	SELECT id, kind, parent_id, ordinal, goal, prompt, returns, status, result, synthesized,
	       created_at, updated_at, ask_target, ask_options, ask_default, ask_timeout_seconds
	FROM nodes
`

type nodeScanner interface {
	Scan(dest ...any) error
}

func scanNode(row *sql.Row) (*cordmodel.Node, error) {
	n, err := scanNodeCommon(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node: %w", err)
	}
	return n, nil
}

func scanNodeRows(rows *sql.Rows) (*cordmodel.Node, error) {
	n, err := scanNodeCommon(rows)
	if err != nil {
		return nil, fmt.Errorf("scan node row: %w", err)
	}
	return n, nil
}

func scanNodeCommon(row nodeScanner) (*cordmodel.Node, error) {
	n := &cordmodel.Node{}
	var parentID sql.NullInt64
	var result sql.NullString
	var kind, returns, status string
	var createdAt, updatedAt int64
	var synthesized int
	var askTarget, askOptions, askDefault sql.NullString
	var askTimeout sql.NullInt64

	err := row.Scan(&n.ID, &kind, &parentID, &n.Ordinal, &n.Goal, &n.Prompt, &returns, &status, &result,
		&synthesized, &createdAt, &updatedAt, &askTarget, &askOptions, &askDefault, &askTimeout)
	if err != nil {
		return nil, err
	}

	n.Kind = cordmodel.Kind(kind)
	if parentID.Valid {
		id := parentID.Int64
		n.ParentID = &id
	}
	n.Returns = cordmodel.Returns(returns)
	n.Status = cordmodel.Status(status)
	if result.Valid {
		r := result.String
		n.Result = &r
	}
	n.Synthesized = synthesized != 0
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	n.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if n.Kind == cordmodel.KindAsk && askTarget.Valid {
		meta := &cordmodel.AskMeta{Target: cordmodel.AskTarget(askTarget.String)}
		if askOptions.Valid && askOptions.String != "" {
			_ = json.Unmarshal([]byte(askOptions.String), &meta.Options)
		}
		if askDefault.Valid {
			meta.Default = askDefault.String
		}
		if askTimeout.Valid {
			meta.TimeoutSeconds = int(askTimeout.Int64)
		}
		n.Ask = meta
	}

	return n, nil
}

func nowTicks() int64 {
	return time.Now().Unix()
}
