package harness

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/render"
	"github.com/roach88/bindlab/internal/value"
)

// Runner executes steps against one environment.
// Run uses a Runner per scenario; the REPL keeps one for a whole session.
type Runner struct {
	env *env.Environment
}

// NewRunner wraps an environment.
func NewRunner(e *env.Environment) *Runner {
	return &Runner{env: e}
}

// Env returns the environment steps run against.
func (r *Runner) Env() *env.Environment {
	return r.env
}

// Exec runs one step and returns a display string for steps that produce a
// result without emitting an event (read).
//
// If step.Error is set, the step must fail with that code. A matching
// failure is noted in the transcript and returns a nil error.
func (r *Runner) Exec(step Step) (string, error) {
	out, err := r.exec(step)
	if step.Error == "" {
		return out, err
	}
	if err == nil {
		return "", fmt.Errorf("expected %s, but %s succeeded", step.Error, step.Kind())
	}
	if got := value.CodeOf(err); string(got) != step.Error {
		return "", fmt.Errorf("expected %s, got: %w", step.Error, err)
	}
	r.env.Note(fmt.Sprintf("%s failed with %s", step.Describe(), step.Error))
	return step.Error, nil
}

func (r *Runner) exec(step Step) (string, error) {
	e := r.env
	switch step.Kind() {
	case StepNote:
		e.Note(step.Note)
		return "", nil

	case StepDeclare, StepConst, StepAssign, StepAppend, StepSet:
		v, fresh, err := r.operand(step)
		if err != nil {
			return "", err
		}
		out, err := r.write(step, v)
		if err != nil {
			// The failed operation stored nothing, so aggregates built for
			// its literal are unreferenced.
			e.Store().Release(fresh...)
			return "", err
		}
		return out, nil

	case StepRead:
		return r.read(step)

	case StepPrint:
		return "", e.Print(step.Print)

	case StepCompare:
		a, b := step.Compare[0], step.Compare[1]
		same, err := e.SameReference(a, b)
		if err != nil {
			return "", err
		}
		e.Note(fmt.Sprintf("%s === %s: %t", a, b, same))
		return fmt.Sprint(same), nil

	case StepScope:
		if step.Scope == "enter" {
			e.PushScope()
			return "", nil
		}
		return "", e.PopScope()

	case StepCollect:
		return fmt.Sprint(e.Collect()), nil
	}
	return "", fmt.Errorf("step has no single action key")
}

// write applies a step that stores v.
func (r *Runner) write(step Step, v value.Value) (string, error) {
	e := r.env
	switch step.Kind() {
	case StepDeclare:
		return "", e.Declare(step.Declare, v)
	case StepConst:
		return "", e.DeclareConst(step.Const, v)
	case StepAssign:
		return "", e.Assign(step.Assign, v)
	case StepAppend:
		n, err := e.Append(step.Append, v)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(n), nil
	default:
		if step.Index != nil {
			return "", e.SetIndex(step.Set, *step.Index, v)
		}
		return "", e.SetField(step.Set, step.Field, v)
	}
}

func (r *Runner) read(step Step) (string, error) {
	e := r.env
	var (
		v   value.Value
		err error
	)
	switch {
	case step.Index != nil:
		v, err = e.Index(step.Read, *step.Index)
	case step.Field != "":
		v, err = e.Field(step.Read, step.Field)
	default:
		v, err = e.Read(step.Read)
	}
	if err != nil {
		return "", err
	}

	if isSet(step.Expect) {
		if err := matchLiteral(e.Store(), v, &step.Expect); err != nil {
			return "", err
		}
	}
	return render.InspectNested(e.Store(), v), nil
}

// operand resolves the value a step writes: a copy of another binding's
// value (from) or a freshly built literal. fresh lists the aggregates the
// literal allocated.
func (r *Runner) operand(step Step) (v value.Value, fresh []value.Handle, err error) {
	if step.From != "" {
		v, err = r.env.Read(step.From)
		return v, nil, err
	}
	return buildLiteral(r.env.Store(), r.env, &step.Value)
}

// matchLiteral compares v, held in s, structurally with an expected literal.
// The literal is built in a scratch store so expectations never allocate
// in the scenario's store.
func matchLiteral(s *heap.Store, v value.Value, expect *yaml.Node) error {
	scratch := heap.New()
	want, err := BuildLiteral(scratch, nil, expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	if !sameContents(s, v, scratch, want) {
		return fmt.Errorf("expected %s, got %s",
			render.InspectNested(scratch, want), render.InspectNested(s, v))
	}
	return nil
}

// sameContents reports whether got (in gs) and want (in ws) have the same
// shape, keys in the same order, and value.Equals leaves. want must be
// acyclic, which literals always are.
func sameContents(gs *heap.Store, got value.Value, ws *heap.Store, want value.Value) bool {
	gh, gotAgg := got.(value.Handle)
	wh, wantAgg := want.(value.Handle)
	if !gotAgg || !wantAgg {
		return !gotAgg && !wantAgg && value.Equals(got, want)
	}

	gShape, err := gs.Shape(gh)
	if err != nil {
		return false
	}
	wShape, err := ws.Shape(wh)
	if err != nil || gShape != wShape {
		return false
	}

	if gShape == heap.ShapeSequence {
		ge, _ := gs.Elements(gh)
		we, _ := ws.Elements(wh)
		if len(ge) != len(we) {
			return false
		}
		for i := range we {
			if !sameContents(gs, ge[i], ws, we[i]) {
				return false
			}
		}
		return true
	}

	gf, _ := gs.Entries(gh)
	wf, _ := ws.Entries(wh)
	if len(gf) != len(wf) {
		return false
	}
	for i := range wf {
		if gf[i].Key != wf[i].Key || !sameContents(gs, gf[i].Value, ws, wf[i].Value) {
			return false
		}
	}
	return true
}
