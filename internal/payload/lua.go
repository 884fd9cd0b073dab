package payload

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/ringchan"
)

// DefaultLuaFunction is called when no function name is configured
const DefaultLuaFunction = "payload"

// LuaError reports a script failure
type LuaError struct {
	Phase   string // "load" or "call"
	Source  string
	Message string
}

func (e *LuaError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("lua %s error in %s: %s", e.Phase, e.Source, e.Message)
	}
	return fmt.Sprintf("lua %s error: %s", e.Phase, e.Message)
}

// LuaSource computes payloads with a Lua function. The function receives the
// zero-based sequence number and returns a string whose bytes are the
// payload; returning nil ends the stream.
//
//	function payload(n)
//	  return string.char(0x05, n % 256)
//	end
type LuaSource struct {
	mu     sync.Mutex
	state  *lua.State
	fn     string
	seq    int64
	output *ringchan.RingChannel[string]
	logger *logrus.Logger
}

// NewLuaSource loads script and checks that fn is defined
func NewLuaSource(script, name, fn string, logger *logrus.Logger) (*LuaSource, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if fn == "" {
		fn = DefaultLuaFunction
	}
	if strings.TrimSpace(script) == "" {
		return nil, &LuaError{Phase: "load", Source: name, Message: "empty script"}
	}

	s := &LuaSource{
		state:  lua.NewState(),
		fn:     fn,
		output: ringchan.New[string](64),
		logger: logger,
	}
	s.state.OpenLibs()
	s.capturePrint()

	if err := s.state.DoString(script); err != nil {
		s.Close()
		return nil, &LuaError{Phase: "load", Source: name, Message: err.Error()}
	}

	s.state.GetGlobal(fn)
	defined := s.state.IsFunction(-1)
	s.state.Pop(1)
	if !defined {
		s.Close()
		return nil, &LuaError{Phase: "load", Source: name, Message: fmt.Sprintf("function %q not defined", fn)}
	}
	return s, nil
}

// LoadLuaSourceFile reads a script from disk
func LoadLuaSourceFile(path, fn string, logger *logrus.Logger) (*LuaSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return NewLuaSource(string(b), path, fn, logger)
}

// capturePrint routes print() to the output ring instead of stdout
func (s *LuaSource) capturePrint() {
	s.state.PushGoFunction(func(L *lua.State) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			switch {
			case L.IsNil(i):
				parts = append(parts, "nil")
			case L.IsBoolean(i):
				parts = append(parts, fmt.Sprint(L.ToBoolean(i)))
			case L.IsNumber(i), L.IsString(i):
				parts = append(parts, L.ToString(i))
			default:
				parts = append(parts, L.Typename(int(L.Type(i))))
			}
		}
		line := strings.Join(parts, "\t")
		if s.output.Send(line) {
			s.logger.Debug("Lua output ring full, oldest line dropped")
		}
		s.logger.WithField("source", "lua").Debug(line)
		return 0
	})
	s.state.SetGlobal("print")
}

// Next calls the script function with the next sequence number
func (s *LuaSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, &LuaError{Phase: "call", Message: "source closed"}
	}

	L := s.state
	L.GetGlobal(s.fn)
	L.PushInteger(s.seq)
	if err := L.Call(1, 1); err != nil {
		return nil, &LuaError{Phase: "call", Message: err.Error()}
	}
	defer L.Pop(1)
	s.seq++

	switch {
	case L.IsNil(-1):
		return nil, io.EOF
	case L.IsString(-1):
		return L.ToBytes(-1), nil
	default:
		return nil, &LuaError{
			Phase:   "call",
			Message: fmt.Sprintf("%s() returned %s, want string", s.fn, L.Typename(int(L.Type(-1)))),
		}
	}
}

// Output returns lines the script printed
func (s *LuaSource) Output() <-chan string {
	return s.output.C()
}

func (s *LuaSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}
