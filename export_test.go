package reagent

var (
	CtxWithLogger          = ctxWithLogger
	RenderToolDescriptions = renderToolDescriptions
	RenderToolNames        = renderToolNames
)

func (s Scratchpad) Clone() Scratchpad {
	return s.clone()
}
