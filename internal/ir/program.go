package ir

// NewFunction allocates an unbuilt Function ready to be handed to
// NewFuncBuilder. params is the formal parameter name list (nil for main or
// a function without parameters); isVoid marks a function declared with the
// `void` keyword and is carried through to the rendered signature. A return
// statement is not checked against isVoid.
func NewFunction(name string, params []string, isVoid bool) *Function {
	return &Function{
		Name:   name,
		Params: params,
		IsVoid: isVoid,
	}
}
