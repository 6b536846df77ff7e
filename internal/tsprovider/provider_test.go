package tsprovider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symdex"
)

func extract(t *testing.T, name, src string) []symdex.DocumentSymbol {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	symbols, err := New().GetSymbols(context.Background(), path)
	require.NoError(t, err)
	return symbols
}

func names(symbols []symdex.DocumentSymbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Name
	}
	return out
}

func TestGetSymbols_UnknownExtension(t *testing.T) {
	t.Parallel()
	symbols := extract(t, "notes.txt", "just some text")
	assert.Nil(t, symbols)
}

func TestGetSymbols_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := New().GetSymbols(context.Background(), filepath.Join(t.TempDir(), "gone.go"))
	assert.Error(t, err)
}

func TestExtractGo(t *testing.T) {
	t.Parallel()
	src := `package sample

const answer = 42

var Count int

type Greeter interface {
	Greet(name string) string
}

type server struct {
	addr string
	port int
}

func NewServer(addr string) *server { return nil }

func (s *server) Start() error { return nil }
`
	symbols := extract(t, "sample.go", src)
	require.Equal(t, []string{"answer", "Count", "Greeter", "server", "NewServer", "Start"}, names(symbols))

	assert.Equal(t, symdex.KindConstant, symbols[0].Kind)
	assert.Equal(t, symdex.KindVariable, symbols[1].Kind)

	greeter := symbols[2]
	assert.Equal(t, symdex.KindInterface, greeter.Kind)
	require.Equal(t, []string{"Greet"}, names(greeter.Children))
	assert.Equal(t, symdex.KindMethod, greeter.Children[0].Kind)

	server := symbols[3]
	assert.Equal(t, symdex.KindStruct, server.Kind)
	require.Equal(t, []string{"addr", "port"}, names(server.Children))
	assert.Equal(t, symdex.KindField, server.Children[0].Kind)

	newServer := symbols[4]
	assert.Equal(t, symdex.KindFunction, newServer.Kind)
	assert.Equal(t, "(addr string) *server", newServer.Detail)

	start := symbols[5]
	assert.Equal(t, symdex.KindMethod, start.Kind)
	assert.Equal(t, "(s *server) () error", start.Detail)
	assert.Equal(t, 17, start.Range.Start.Line, "ranges are zero-based lines")
	assert.Equal(t, 17, start.SelectionRange.Start.Line)
	assert.Greater(t, start.SelectionRange.Start.Character, start.Range.Start.Character)
}

func TestExtractJavaScript(t *testing.T) {
	t.Parallel()
	src := `export class Point {
  constructor(x, y) {
    this.x = x;
    this.y = y;
  }
  norm() { return 0; }
}

const add = (a, b) => a + b;

function main() {}
`
	symbols := extract(t, "geometry.js", src)
	require.Equal(t, []string{"Point", "add", "main"}, names(symbols))

	point := symbols[0]
	assert.Equal(t, symdex.KindClass, point.Kind)
	require.Equal(t, []string{"constructor", "norm"}, names(point.Children))
	assert.Equal(t, symdex.KindConstructor, point.Children[0].Kind)
	assert.Equal(t, symdex.KindMethod, point.Children[1].Kind)

	assert.Equal(t, symdex.KindFunction, symbols[1].Kind, "arrow function bound to a const")
	assert.Equal(t, symdex.KindFunction, symbols[2].Kind)
}

func TestExtractPython(t *testing.T) {
	t.Parallel()
	src := `class Greeter:
    def greet(self, name):
        return name

def main():
    pass
`
	symbols := extract(t, "app.py", src)
	require.Equal(t, []string{"Greeter", "main"}, names(symbols))

	greeter := symbols[0]
	assert.Equal(t, symdex.KindClass, greeter.Kind)
	require.Equal(t, []string{"greet"}, names(greeter.Children))
	assert.Equal(t, symdex.KindMethod, greeter.Children[0].Kind)

	assert.Equal(t, symdex.KindFunction, symbols[1].Kind)
}

func TestExtractPython_Decorated(t *testing.T) {
	t.Parallel()
	src := `@app.route("/")
def index():
    return "ok"
`
	symbols := extract(t, "routes.py", src)
	require.Equal(t, []string{"index"}, names(symbols))
	assert.Equal(t, symdex.KindFunction, symbols[0].Kind)
}
