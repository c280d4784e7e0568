// Package ai drives computer-controlled combatants with a Hierarchical Task Network (HTN) planner.
//
// HTN planning decomposes the root task "behave" into primitive operators via ordered methods.
// Method preconditions are built-in checks against the combatant's State, falling back to Lua
// hooks for names the planner does not know; operators map to hand actions.
package ai

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// Action is a primitive hand action.
type Action string

const (
	ActionAttack     Action = "attack"
	ActionMoveAttack Action = "move_attack"
	ActionPass       Action = "pass"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionAttack, ActionMoveAttack, ActionPass:
		return true
	}
	return false
}

// Task is an abstract goal that can be decomposed by methods.
//
// Precondition: ID must be non-empty.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
//
// Precondition: TaskID, ID, and Subtasks must be non-empty.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"` // empty = always applicable
	Subtasks     []string `yaml:"subtasks"`
}

// Operator is a primitive action on one hand.
//
// Precondition: ID must be non-empty; Hand must be "left" or "right" unless Action is pass.
type Operator struct {
	ID     string `yaml:"id"`
	Action Action `yaml:"action"`
	Hand   string `yaml:"hand"`
}

// Domain holds one HTN behaviour loaded from YAML.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

// Validate checks that every cross-reference in the domain resolves.
//
// Postcondition: returns nil iff the domain has an ID, declares RootTask, has no duplicate IDs,
// and every subtask names a task or an operator.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai.Domain: ID must not be empty")
	}
	var errs []error
	taskIDs, err := uniqueIDs(d.Tasks, func(t *Task) string { return t.ID })
	if err != nil {
		errs = append(errs, fmt.Errorf("task: %w", err))
	}
	if _, ok := taskIDs[RootTask]; !ok {
		errs = append(errs, fmt.Errorf("root task %q is not declared", RootTask))
	}
	if _, err := uniqueIDs(d.Methods, func(m *Method) string { return m.ID }); err != nil {
		errs = append(errs, fmt.Errorf("method: %w", err))
	}
	opIDs, err := uniqueIDs(d.Operators, func(o *Operator) string { return o.ID })
	if err != nil {
		errs = append(errs, fmt.Errorf("operator: %w", err))
	}

	for _, op := range d.Operators {
		if !op.Action.Valid() {
			errs = append(errs, fmt.Errorf("operator %q: unknown action %q", op.ID, op.Action))
			continue
		}
		if op.Action != ActionPass && op.Hand != "left" && op.Hand != "right" {
			errs = append(errs, fmt.Errorf("operator %q: hand must be left or right, got %q", op.ID, op.Hand))
		}
	}
	for _, m := range d.Methods {
		if _, ok := taskIDs[m.TaskID]; !ok {
			errs = append(errs, fmt.Errorf("method %q: unknown task %q", m.ID, m.TaskID))
		}
		if len(m.Subtasks) == 0 {
			errs = append(errs, fmt.Errorf("method %q: subtasks must not be empty", m.ID))
		}
		for _, sub := range m.Subtasks {
			_, isTask := taskIDs[sub]
			_, isOp := opIDs[sub]
			if !isTask && !isOp {
				errs = append(errs, fmt.Errorf("method %q: subtask %q is neither a task nor an operator", m.ID, sub))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ai.Domain %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

func uniqueIDs[T any](items []T, id func(T) string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := id(it)
		if k == "" {
			return seen, errors.New("empty ID")
		}
		if _, dup := seen[k]; dup {
			return seen, fmt.Errorf("duplicate ID %q", k)
		}
		seen[k] = struct{}{}
	}
	return seen, nil
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// yamlDomainFile wraps the YAML top-level key.
type yamlDomainFile struct {
	Domain *Domain `yaml:"domain"`
}

// ParseDomain decodes and validates one domain document. Unknown fields are rejected.
func ParseDomain(data []byte) (*Domain, error) {
	var f yamlDomainFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing domain YAML: %w", err)
	}
	if f.Domain == nil {
		return nil, errors.New("missing top-level 'domain' key")
	}
	if err := f.Domain.Validate(); err != nil {
		return nil, err
	}
	return f.Domain, nil
}

// LoadDomains reads all *.yaml files from dir and returns parsed Domains.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
func LoadDomains(dir string) ([]*Domain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadDomains: reading %q: %w", dir, err)
	}
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: reading %s: %w", e.Name(), err)
		}
		d, err := ParseDomain(data)
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s: %w", e.Name(), err)
		}
		domains = append(domains, d)
	}
	return domains, nil
}
