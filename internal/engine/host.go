package engine

// ErrorKind classifies a diagnostic event.
type ErrorKind int

const (
	ErrorCompile ErrorKind = iota
	ErrorRuntime
	ErrorStackTrace
)

// Result is the outcome of running script code.
type Result int

const (
	ResultSuccess Result = iota
	ResultCompileError
	ResultRuntimeError
)

// Host is everything the engine needs from its embedder. All methods are
// called synchronously on the goroutine running the engine.
type Host interface {
	// ResolveModule canonicalizes an import string.
	ResolveModule(importer, name string) (string, bool)

	// LoadModule returns the source of a module. done, if non-nil, is called
	// once the engine has finished with the source.
	LoadModule(name string) (source string, done func(), ok bool)

	// BindForeignMethod returns the implementation of a foreign method, or
	// nil when there is none.
	BindForeignMethod(module, class string, isStatic bool, signature string) func()

	// BindForeignClass returns the allocator and optional finalizer of a
	// foreign class. A nil allocate means the class is unbound.
	BindForeignClass(module, class string) (allocate func(), finalize func([]byte))

	Write(text string)
	Error(kind ErrorKind, module string, line int, message string)

	// Reallocate follows realloc semantics over raw byte storage.
	Reallocate(memory []byte, newSize int) []byte
}

// Config is the heap policy of a VM. Zero fields take their defaults.
type Config struct {
	InitialHeapSize   int
	MinHeapSize       int
	HeapGrowthPercent int
}

const (
	DefaultInitialHeapSize   = 10 * 1024 * 1024
	DefaultMinHeapSize       = 1024 * 1024
	DefaultHeapGrowthPercent = 50
)

func (c Config) withDefaults() Config {
	if c.InitialHeapSize <= 0 {
		c.InitialHeapSize = DefaultInitialHeapSize
	}
	if c.MinHeapSize <= 0 {
		c.MinHeapSize = DefaultMinHeapSize
	}
	if c.HeapGrowthPercent <= 0 {
		c.HeapGrowthPercent = DefaultHeapGrowthPercent
	}
	return c
}
