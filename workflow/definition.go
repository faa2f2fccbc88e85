package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how a workflow's steps are ordered and overlapped.
type Mode string

// Execution modes.
const (
	// ModeSequential executes steps in declared order, one at a time.
	ModeSequential Mode = "sequential"
	// ModeParallel treats all steps as mutually independent and runs them
	// under the concurrency limiter, ignoring declared dependencies.
	ModeParallel Mode = "parallel"
	// ModeMixed performs breadth-expanding topological execution: steps
	// launch as soon as their dependencies complete.
	ModeMixed Mode = "mixed"
)

// ErrorPolicy selects how a non-optional step failure is handled.
type ErrorPolicy string

// Error policies.
const (
	// FailFast aborts remaining step scheduling immediately.
	FailFast ErrorPolicy = "fail_fast"
	// Continue lets independent steps keep running while excluding the
	// failed step's dependents.
	Continue ErrorPolicy = "continue"
	// Retry re-attempts a failed step per its RetryPolicy before aborting.
	Retry ErrorPolicy = "retry"
)

// Backoff selects how retry delays grow between attempts.
type Backoff string

// Backoff strategies.
const (
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy controls re-attempts of a failed step when the workflow's
// error policy is Retry.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// Delay is the base wait before a re-attempt.
	Delay time.Duration `yaml:"delay" json:"delay"`
	// Backoff defaults to linear when empty.
	Backoff Backoff `yaml:"backoff,omitempty" json:"backoff,omitempty"`
}

// delayFor returns the wait before re-attempt number retry (1-based).
func (p *RetryPolicy) delayFor(retry int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	switch p.Backoff {
	case BackoffExponential:
		d := p.Delay
		for i := 1; i < retry; i++ {
			d *= 2
		}
		return d
	default:
		return p.Delay * time.Duration(retry)
	}
}

// Condition is a predicate over the live execution context. A false return
// permanently skips the step without marking it failed. Conditions are code,
// not data, so they are not expressible in YAML definitions.
type Condition func(execCtx *ExecutionContext) bool

// Step is one workflow node: a target agent, an input template and optional
// ordering / fault-isolation attributes.
type Step struct {
	ID      string `yaml:"id" json:"id"`
	AgentID string `yaml:"agent_id" json:"agent_id"`
	// Input may contain ${name} placeholders resolved against the shared
	// variable namespace at launch time.
	Input        string        `yaml:"input" json:"input"`
	Dependencies []string      `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Condition    Condition     `yaml:"-" json:"-"`
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Optional marks the step's failure as non-fatal to the workflow.
	Optional bool         `yaml:"optional,omitempty" json:"optional,omitempty"`
	Retry    *RetryPolicy `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// Definition declares a workflow: its steps, dependency edges, execution
// mode and error policy. Definitions are inert data; hand them to a
// Scheduler to execute.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
	Mode        Mode   `yaml:"mode" json:"mode"`
	// ErrorHandling defaults to fail_fast.
	ErrorHandling ErrorPolicy `yaml:"error_handling,omitempty" json:"error_handling,omitempty"`
	// Timeout bounds the whole workflow. Zero means no global deadline.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// MaxConcurrency caps simultaneously running steps in parallel and
	// mixed modes. Zero defaults to the step count.
	MaxConcurrency int `yaml:"max_concurrency,omitempty" json:"max_concurrency,omitempty"`
}

// UnmarshalYAML decodes a retry policy, accepting Go duration strings
// ("100ms", "2s") for the delay.
func (p *RetryPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxAttempts int     `yaml:"max_attempts"`
		Delay       string  `yaml:"delay"`
		Backoff     Backoff `yaml:"backoff"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	delay, err := parseYAMLDuration(raw.Delay)
	if err != nil {
		return fmt.Errorf("invalid retry delay %q: %w", raw.Delay, err)
	}

	p.MaxAttempts = raw.MaxAttempts
	p.Delay = delay
	p.Backoff = raw.Backoff
	return nil
}

// UnmarshalYAML decodes a step, accepting Go duration strings for the timeout.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID           string       `yaml:"id"`
		AgentID      string       `yaml:"agent_id"`
		Input        string       `yaml:"input"`
		Dependencies []string     `yaml:"dependencies"`
		Timeout      string       `yaml:"timeout"`
		Optional     bool         `yaml:"optional"`
		Retry        *RetryPolicy `yaml:"retry"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	timeout, err := parseYAMLDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("step %q: invalid timeout %q: %w", raw.ID, raw.Timeout, err)
	}

	s.ID = raw.ID
	s.AgentID = raw.AgentID
	s.Input = raw.Input
	s.Dependencies = raw.Dependencies
	s.Timeout = timeout
	s.Optional = raw.Optional
	s.Retry = raw.Retry
	return nil
}

// UnmarshalYAML decodes a definition, accepting Go duration strings for the
// workflow timeout.
func (d *Definition) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID             string      `yaml:"id"`
		Name           string      `yaml:"name"`
		Description    string      `yaml:"description"`
		Steps          []Step      `yaml:"steps"`
		Mode           Mode        `yaml:"mode"`
		ErrorHandling  ErrorPolicy `yaml:"error_handling"`
		Timeout        string      `yaml:"timeout"`
		MaxConcurrency int         `yaml:"max_concurrency"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	timeout, err := parseYAMLDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("workflow %q: invalid timeout %q: %w", raw.ID, raw.Timeout, err)
	}

	d.ID = raw.ID
	d.Name = raw.Name
	d.Description = raw.Description
	d.Steps = raw.Steps
	d.Mode = raw.Mode
	d.ErrorHandling = raw.ErrorHandling
	d.Timeout = timeout
	d.MaxConcurrency = raw.MaxConcurrency
	return nil
}

func parseYAMLDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// ParseDefinition decodes a YAML workflow definition and validates it.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode workflow definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks structural soundness and normalizes defaults (mode
// sequential, error handling fail_fast). It rejects duplicate step ids,
// dependencies on unknown steps, self-dependencies, dependency cycles and
// unknown mode / policy / backoff values.
func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", d.ID)
	}

	if d.Mode == "" {
		d.Mode = ModeSequential
	}
	switch d.Mode {
	case ModeSequential, ModeParallel, ModeMixed:
	default:
		return fmt.Errorf("workflow %q has unknown mode %q", d.ID, d.Mode)
	}

	if d.ErrorHandling == "" {
		d.ErrorHandling = FailFast
	}
	switch d.ErrorHandling {
	case FailFast, Continue, Retry:
	default:
		return fmt.Errorf("workflow %q has unknown error policy %q", d.ID, d.ErrorHandling)
	}

	ids := make(map[string]bool, len(d.Steps))
	for i := range d.Steps {
		step := &d.Steps[i]
		if step.ID == "" {
			return fmt.Errorf("workflow %q: step %d has no id", d.ID, i)
		}
		if step.AgentID == "" {
			return fmt.Errorf("workflow %q: step %q has no agent id", d.ID, step.ID)
		}
		if ids[step.ID] {
			return fmt.Errorf("workflow %q: duplicate step id %q", d.ID, step.ID)
		}
		ids[step.ID] = true

		if step.Retry != nil {
			if step.Retry.MaxAttempts < 1 {
				return fmt.Errorf("workflow %q: step %q retry needs at least one attempt", d.ID, step.ID)
			}
			switch step.Retry.Backoff {
			case "", BackoffLinear, BackoffExponential:
			default:
				return fmt.Errorf("workflow %q: step %q has unknown backoff %q", d.ID, step.ID, step.Retry.Backoff)
			}
		}
	}

	for i := range d.Steps {
		step := &d.Steps[i]
		for _, dep := range step.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("workflow %q: step %q depends on unknown step %q", d.ID, step.ID, dep)
			}
			if dep == step.ID {
				return fmt.Errorf("workflow %q: step %q depends on itself", d.ID, step.ID)
			}
		}
	}

	if err := d.checkCycles(); err != nil {
		return err
	}

	return nil
}

// checkCycles rejects circular dependency chains via depth-first search.
func (d *Definition) checkCycles() error {
	deps := make(map[string][]string, len(d.Steps))
	for i := range d.Steps {
		deps[d.Steps[i].ID] = d.Steps[i].Dependencies
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(deps))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("workflow %q: dependency cycle involving step %q", d.ID, id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for i := range d.Steps {
		if err := visit(d.Steps[i].ID); err != nil {
			return err
		}
	}
	return nil
}
