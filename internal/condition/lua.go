package condition

import (
	"fmt"
	"sync"

	"github.com/Shopify/go-lua"
)

const compiledName = "__condition"

// Lua evaluates a Lua expression. Inside the expression the functions
// flag(id), evidence(id) and partner() read the case state:
//
//	flag("SawLetter") and (evidence("Letter") or partner() == "Ryan")
//
// The expression is compiled once by [NewLua]. A Lua value is safe for
// concurrent use; evaluations are serialised.
type Lua struct {
	expr string

	mu  sync.Mutex
	l   *lua.State
	env Env
}

// NewLua compiles expr. Syntax errors are reported here rather than at
// evaluation time.
func NewLua(expr string) (*Lua, error) {
	c := &Lua{expr: expr, l: lua.NewState()}
	lua.OpenLibraries(c.l)
	c.register()

	if err := lua.LoadString(c.l, "return ("+expr+")"); err != nil {
		return nil, fmt.Errorf("%w: lua %q: %v", ErrInvalid, expr, err)
	}
	c.l.SetGlobal(compiledName)
	return c, nil
}

func (c *Lua) register() {
	c.l.Register("flag", func(l *lua.State) int {
		l.PushBoolean(c.env.IsFlagSet(lua.CheckString(l, 1)))
		return 1
	})
	c.l.Register("evidence", func(l *lua.State) int {
		l.PushBoolean(c.env.IsEvidenceEnabled(lua.CheckString(l, 1)))
		return 1
	})
	c.l.Register("partner", func(l *lua.State) int {
		l.PushString(c.env.CurrentPartner())
		return 1
	})
}

// Evaluate implements [Condition]. The result follows Lua truthiness: only
// nil and false are false.
func (c *Lua) Evaluate(env Env) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.env = env
	defer func() { c.env = nil }()

	c.l.Global(compiledName)
	if err := c.l.ProtectedCall(0, 1, 0); err != nil {
		// Drop the error value left on the stack.
		c.l.Pop(1)
		return false, fmt.Errorf("condition: evaluate lua %q: %w", c.expr, err)
	}
	v := c.l.ToBoolean(-1)
	c.l.Pop(1)
	return v, nil
}

func (c *Lua) String() string { return "lua(" + c.expr + ")" }
