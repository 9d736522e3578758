package diag_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aspect-build/aspect-cli/wren/diag"
	"github.com/aspect-build/aspect-cli/wren/wren"
)

func runScript(t *testing.T, r *diag.Recorder, src string) wren.InterpretResult {
	t.Helper()
	cfg := wren.DefaultConfig()
	cfg.ErrorFn = r.ErrorFn()

	var res wren.InterpretResult
	err := wren.Run(context.Background(), &cfg, func(vm *wren.VM) error {
		var err error
		res, err = vm.Interpret("main", src)
		return err
	})
	if err != nil {
		t.Fatalf("failed to run: %v", err)
	}
	return res
}

func TestRecorderFormat(t *testing.T) {
	var out bytes.Buffer
	r := diag.NewRecorder(&out)

	res := runScript(t, r, "class Foo {\n  static bar() {\n    Fiber.abort(\"boom\")\n  }\n}\nFoo.bar()")
	if res != wren.ResultRuntimeError {
		t.Fatalf("got %v, want %v", res, wren.ResultRuntimeError)
	}
	want := "boom\n[main line 3] in static Foo.bar()\n[main line 6] in (script)\n"
	if got := out.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := r.Count(wren.ErrorStackTrace); n != 2 {
		t.Errorf("got %d stack frames, want 2", n)
	}
}

func TestRecorderCompileError(t *testing.T) {
	var out bytes.Buffer
	r := diag.NewRecorder(&out)

	if res := runScript(t, r, "var = 1"); res != wren.ResultCompileError {
		t.Fatalf("got %v, want %v", res, wren.ResultCompileError)
	}
	if got, want := out.String(), "[main line 1] Error at '=': Expect variable name.\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	r.Reset()
	if len(r.Events()) != 0 {
		t.Errorf("reset should discard events")
	}
}

func TestLogCBOR(t *testing.T) {
	r := diag.NewRecorder(nil)
	res := runScript(t, r, "Fiber.abort(\"x\")")

	l := r.Log("main.wren", res)
	data, err := diag.Marshal(l)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	again, err := diag.Marshal(r.Log("main.wren", res))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("encoding should be deterministic")
	}

	path := filepath.Join(t.TempDir(), "diag.cbor")
	if err := diag.WriteFile(path, l); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	got, err := diag.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if got.Version != wren.VersionString || got.Script != "main.wren" || got.Result != wren.ResultRuntimeError {
		t.Errorf("got %+v", got)
	}
	if len(got.Events) != 2 || got.Events[0].Message != "x" || got.Events[1].Line != 1 {
		t.Errorf("got events %+v", got.Events)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := diag.Unmarshal([]byte{0xff, 0x00}); err == nil || !strings.Contains(err.Error(), "unmarshal log") {
		t.Errorf("got %v, want an unmarshal error", err)
	}
}
