package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/dabinuss/clipcore/internal/ports"
)

var _ ports.Oracle = (*ScriptedOracle)(nil)

type rule struct {
	contains  string
	responses []string
}

// ScriptedOracle is a deterministic ports.Oracle for tests. Responses are
// picked from the first rule whose substring occurs in the prompt, then from
// the plain queue, then Fallback. Every prompt is recorded.
type ScriptedOracle struct {
	mu sync.Mutex

	Ready    bool
	InitErr  error
	Err      error
	Fallback string

	// Block makes Complete wait for ctx to be done.
	Block bool

	rules []*rule
	queue []string
	calls []string
	inits int
}

func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{Ready: true}
}

// On queues responses for prompts containing substr.
func (o *ScriptedOracle) On(substr string, responses ...string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rules = append(o.rules, &rule{contains: substr, responses: responses})
	return o
}

// Then queues responses for any prompt no rule matches.
func (o *ScriptedOracle) Then(responses ...string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(o.queue, responses...)
	return o
}

func (o *ScriptedOracle) Complete(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	o.calls = append(o.calls, prompt)
	block := o.Block
	o.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range o.rules {
		if len(r.responses) > 0 && strings.Contains(prompt, r.contains) {
			resp := r.responses[0]
			r.responses = r.responses[1:]
			return resp, nil
		}
	}
	if len(o.queue) > 0 {
		resp := o.queue[0]
		o.queue = o.queue[1:]
		return resp, nil
	}
	return o.Fallback, o.Err
}

func (o *ScriptedOracle) IsReady() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Ready
}

func (o *ScriptedOracle) TryInitialize(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inits++
	if o.InitErr != nil {
		return o.InitErr
	}
	o.Ready = true
	return nil
}

// Calls returns the prompts seen so far.
func (o *ScriptedOracle) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

// CallsContaining counts recorded prompts containing substr.
func (o *ScriptedOracle) CallsContaining(substr string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

func (o *ScriptedOracle) Inits() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inits
}
