package reagent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent/trace"
)

// State is the status of a run.
type State int

const (
	// StateRunning means the loop keeps asking the model for the next decision.
	StateRunning State = iota

	// StateDone means the model produced a final answer.
	StateDone
)

// String returns the string representation of the state.
func (x State) String() string {
	switch x {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

const (
	DefaultMaxIterations = 15
)

// Agent runs the ReAct loop: render the prompt, ask the completer, parse the answer, and either
// run the requested tool or finish.
type Agent struct {
	completer Completer
	registry  *Registry

	agentConfig
}

type agentConfig struct {
	maxIterations int
	stop          []string
	parser        OutputParser
	renderer      PromptRenderer
	logger        *slog.Logger
	traceHandler  trace.Handler

	promptHook      PromptHook
	completionHook  CompletionHook
	actionHook      ActionHook
	observationHook ObservationHook
	toolErrorHook   ToolErrorHook
}

// Option is the type for the options of the agent.
type Option func(*agentConfig)

// New creates an agent. A nil registry is treated as an empty one.
func New(completer Completer, registry *Registry, options ...Option) *Agent {
	if registry == nil {
		registry = &Registry{}
	}

	x := &Agent{
		completer: completer,
		registry:  registry,
		agentConfig: agentConfig{
			maxIterations: DefaultMaxIterations,
			stop:          []string{DefaultStopSequence},
			parser:        NewReActParser(),
			renderer:      defaultRenderer,
			logger:        slog.New(slog.DiscardHandler),

			promptHook:      defaultPromptHook,
			completionHook:  defaultCompletionHook,
			actionHook:      defaultActionHook,
			observationHook: defaultObservationHook,
			toolErrorHook:   defaultToolErrorHook,
		},
	}

	for _, opt := range options {
		opt(&x.agentConfig)
	}

	x.logger.Debug("reagent agent created",
		"max_iterations", x.maxIterations,
		"stop", x.stop,
		"tools", x.registry.Names(),
		"has_trace", x.traceHandler != nil,
	)

	return x
}

// WithMaxIterations sets the maximum number of completions in one run. Default is DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(c *agentConfig) {
		c.maxIterations = n
	}
}

// WithStopSequences replaces the stop sequences sent to the completer. Default is DefaultStopSequence.
func WithStopSequences(stop ...string) Option {
	return func(c *agentConfig) {
		c.stop = stop
	}
}

// WithParser replaces the output parser. Default is ReActParser.
func WithParser(parser OutputParser) Option {
	return func(c *agentConfig) {
		c.parser = parser
	}
}

// WithRenderer replaces the prompt renderer. Default renders DefaultPromptTemplate.
// Usage:
//
//	renderer, err := reagent.NewTemplateRenderer(myTemplate)
//	if err != nil {
//		return err
//	}
//	agent := reagent.New(completer, registry, reagent.WithRenderer(renderer))
func WithRenderer(renderer PromptRenderer) Option {
	return func(c *agentConfig) {
		c.renderer = renderer
	}
}

// WithLogger sets the logger for the agent. Default is discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *agentConfig) {
		c.logger = logger
	}
}

// WithTrace sets the trace handler. Use trace.Multi to attach more than one.
func WithTrace(h trace.Handler) Option {
	return func(c *agentConfig) {
		c.traceHandler = h
	}
}

// WithPromptHook sets a callback that receives the rendered prompt before each completion.
// If the function returns an error, Run() is aborted immediately.
func WithPromptHook(callback PromptHook) Option {
	return func(c *agentConfig) {
		c.promptHook = callback
	}
}

// WithCompletionHook sets a callback that receives the raw completion text before it is parsed.
// If the function returns an error, Run() is aborted immediately.
// Usage:
//
//	reagent.WithCompletionHook(func(ctx context.Context, text string) error {
//		println(text)
//		return nil
//	})
func WithCompletionHook(callback CompletionHook) Option {
	return func(c *agentConfig) {
		c.completionHook = callback
	}
}

// WithActionHook sets a callback that is called just before a tool runs. It is not called
// when the tool is not registered. If the function returns an error, Run() is aborted immediately.
func WithActionHook(callback ActionHook) Option {
	return func(c *agentConfig) {
		c.actionHook = callback
	}
}

// WithObservationHook sets a callback that receives every new step.
func WithObservationHook(callback ObservationHook) Option {
	return func(c *agentConfig) {
		c.observationHook = callback
	}
}

// WithToolErrorHook sets a callback for tool failures. By default a tool error aborts the run
// with ErrToolExecution.
// Usage:
//
//	reagent.WithToolErrorHook(func(ctx context.Context, err error, action *reagent.Action) (string, error) {
//		return "error: " + err.Error(), nil // let the model see the error and go on
//	})
func WithToolErrorHook(callback ToolErrorHook) Option {
	return func(c *agentConfig) {
		c.toolErrorHook = callback
	}
}

// Result is the outcome of a finished run.
type Result struct {
	// ReturnValues is the Finish payload. ReturnValues["output"] is the final answer.
	ReturnValues map[string]string

	// Scratchpad holds every step of the run in order.
	Scratchpad Scratchpad

	// Iterations is the number of completions the run used.
	Iterations int
}

// Output returns the final answer.
func (x *Result) Output() string {
	return x.ReturnValues[ReturnValueOutput]
}

// Run answers the question. The scratchpad starts empty on every call, so runs are independent
// and the agent can be reused.
func (x *Agent) Run(ctx context.Context, question string) (*Result, error) {
	logger := x.logger.With("reagent.run_id", uuid.New().String())
	ctx = ctxWithLogger(ctx, logger)
	logger.Info("starting reagent run", "question", question)

	if x.traceHandler != nil {
		ctx = trace.WithHandler(ctx, x.traceHandler)
		ctx = x.traceHandler.StartRun(ctx, question)
	}

	result, err := x.run(ctx, question)

	if x.traceHandler != nil {
		var output string
		if result != nil {
			output = result.Output()
		}
		x.traceHandler.EndRun(ctx, output, err)
		if finErr := x.traceHandler.Finish(ctx); finErr != nil {
			logger.Warn("failed to finish trace", "error", finErr)
		}
	}

	if err != nil {
		logger.Info("reagent run failed", "error", err)
		return nil, err
	}

	logger.Info("reagent run finished", "output", result.Output(), "iterations", result.Iterations)
	return result, nil
}

// runState is the per-run loop state. It never outlives Run.
type runState struct {
	question   string
	scratchpad Scratchpad
	decision   Decision
	state      State
}

func (x *Agent) run(ctx context.Context, question string) (*Result, error) {
	logger := LoggerFromContext(ctx)
	st := &runState{
		question: question,
		state:    StateRunning,
	}

	for i := 0; st.state == StateRunning; i++ {
		if i >= x.maxIterations {
			return nil, goerr.Wrap(ErrMaxIterationsExceeded, "run stopped",
				goerr.V("max_iterations", x.maxIterations),
				goerr.V("steps", len(st.scratchpad)))
		}
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "run canceled", goerr.V("iteration", i))
		}

		decision, err := x.next(ctx, st, i)
		if err != nil {
			return nil, err
		}
		st.decision = decision

		switch decision.Kind() {
		case DecisionKindFinish:
			st.state = StateDone
			finish := decision.(*Finish)
			return &Result{
				ReturnValues: finish.ReturnValues,
				Scratchpad:   st.scratchpad.clone(),
				Iterations:   i + 1,
			}, nil

		case DecisionKindAction:
			step, err := x.dispatch(ctx, decision.(*Action))
			if err != nil {
				return nil, goerr.Wrap(err, "failed to dispatch action", goerr.V("iteration", i))
			}
			st.scratchpad = append(st.scratchpad, step)
			logger.Debug("step appended", "step", step, "iteration", i)

			if err := x.observationHook(ctx, step); err != nil {
				return nil, goerr.Wrap(err, "failed to call ObservationHook")
			}

		default:
			return nil, goerr.New("unknown decision kind", goerr.V("kind", decision.Kind()))
		}
	}

	return nil, goerr.New("run left the loop without a final answer")
}

// next renders the prompt, asks the completer and parses the text into a decision.
func (x *Agent) next(ctx context.Context, st *runState, iteration int) (Decision, error) {
	logger := LoggerFromContext(ctx)

	prompt, err := x.renderer.Render(PromptInput{
		Question:   st.question,
		Tools:      x.registry.Specs(),
		Scratchpad: st.scratchpad,
	})
	if err != nil {
		return nil, err
	}
	if err := x.promptHook(ctx, prompt); err != nil {
		return nil, goerr.Wrap(err, "failed to call PromptHook")
	}

	text, err := x.complete(ctx, &CompletionRequest{Prompt: prompt, Stop: x.stop})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to complete", goerr.V("iteration", iteration))
	}
	if err := x.completionHook(ctx, text); err != nil {
		return nil, goerr.Wrap(err, "failed to call CompletionHook")
	}

	decision, err := x.parser.Parse(text)
	if err != nil {
		return nil, err
	}
	logger.Debug("decision parsed", "decision", decision, "iteration", iteration)

	if h := x.traceHandler; h != nil {
		h.AddEvent(ctx, "decision", decision)
	}

	return decision, nil
}

func (x *Agent) complete(ctx context.Context, req *CompletionRequest) (string, error) {
	logger := LoggerFromContext(ctx)
	logger.Debug("sending completion request", "request", req)

	if h := x.traceHandler; h != nil {
		ctx = h.StartCompletion(ctx)
	}

	resp, err := x.completer.Complete(ctx, req)
	if err != nil {
		err = goerr.Wrap(fmt.Errorf("%w: %w", ErrCompletion, err), "completer failed", goerr.Tag(ErrTagUpstream))
	}

	var text string
	if resp != nil {
		text = TruncateAtStop(resp.Text, req.Stop)
	}

	if h := x.traceHandler; h != nil {
		data := &trace.CompletionData{
			Prompt: req.Prompt,
			Stop:   req.Stop,
			Text:   text,
		}
		if resp != nil {
			data.Model = resp.Model
			data.InputTokens = resp.InputTokens
			data.OutputTokens = resp.OutputTokens
		}
		h.EndCompletion(ctx, data, err)
	}

	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", goerr.Wrap(ErrCompletion, "completer returned no response", goerr.Tag(ErrTagUpstream))
	}

	logger.Debug("completion received", "text", text, "model", resp.Model)
	return text, nil
}

// dispatch runs the tool the action names and returns the resulting step.
func (x *Agent) dispatch(ctx context.Context, action *Action) (Step, error) {
	logger := LoggerFromContext(ctx)

	tool, err := x.registry.Lookup(action.Tool)
	if err != nil {
		return Step{}, goerr.Wrap(err, "model requested an unknown tool", goerr.V("input", action.Input))
	}

	if err := x.actionHook(ctx, action); err != nil {
		return Step{}, goerr.Wrap(err, "failed to call ActionHook")
	}

	toolCtx := ctx
	if h := x.traceHandler; h != nil {
		toolCtx = h.StartToolExec(ctx, action.Tool, action.Input)
	}

	observation, runErr := tool.Run(toolCtx, action.Input)

	if h := x.traceHandler; h != nil {
		h.EndToolExec(toolCtx, observation, runErr)
	}

	if runErr != nil {
		logger.Info("tool failed", "tool", action.Tool, "input", action.Input, "error", runErr)

		recovered, hookErr := x.toolErrorHook(ctx, runErr, action)
		if hookErr != nil {
			return Step{}, goerr.Wrap(fmt.Errorf("%w: %w", ErrToolExecution, hookErr), "tool failed",
				goerr.V("tool", action.Tool),
				goerr.V("input", action.Input),
				goerr.Tag(ErrTagUpstream))
		}
		observation = recovered
	}

	logger.Debug("tool returned", "tool", action.Tool, "observation", observation)
	return Step{Action: action, Observation: observation}, nil
}
