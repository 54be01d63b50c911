package store

// Symbol kinds, the closed set from §3. Mirrors pkg/extract's kind
// constants, which populate these values at index time; store has no
// dependency on extract, so the set is declared again here for the
// query layer to filter on.
const (
	KindFunction  = "function"
	KindMethod    = "method"
	KindClass     = "class"
	KindInterface = "interface"
	KindStruct    = "struct"
	KindVariable  = "variable"
	KindConstant  = "constant"
	KindProperty  = "property"
	KindField     = "field"
	KindModule    = "module"
	KindNamespace = "namespace"
	KindType      = "type"
)

// Reference kinds, the closed set from §3.
const (
	RefCall      = "call"
	RefRead      = "read"
	RefWrite     = "write"
	RefImport    = "import"
	RefExport    = "export"
	RefExtend    = "extend"
	RefImplement = "implement"
)

// File is a single indexed source file (§3).
type File struct {
	ID          string
	Path        string
	Language    string
	ContentHash string
	MTime       int64
	Size        int64
	IndexedAt   int64
}

// Symbol is a named, located code entity extracted from a File (§3).
type Symbol struct {
	ID              string
	FileID          string
	Language        string
	Kind            string
	Name            string
	QualifiedName   string
	StartLine       int
	StartCol        int
	EndLine         int
	EndCol          int
	Signature       string
	DocComment      string
	Exported        bool
	SummaryHash     string
	Summary         string
	SummaryTokens   int
	SummarizedAt    int64
}

// Call is a directed call-site edge between two resolved symbols (§3).
type Call struct {
	ID         string
	CallerID   string
	CalleeID   string
	SiteFileID string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}

// Reference is any non-call use of a name (read, write, import, export,
// extend, implement) resolved against the store (§3).
type Reference struct {
	ID           string
	SourceFileID string
	TargetID     string
	Kind         string
	StartLine    int
	StartCol     int
	EndLine      int
	EndCol       int
}

// Embedding is a per-(symbol, model) vector payload stored as raw
// little-endian float32 bytes (§3, §9).
type Embedding struct {
	SymbolID  string
	Model     string
	Dim       int
	Payload   []byte
	ChunkHash string
	CreatedAt int64
	UpdatedAt int64
}

// Location is the file-joined position of a symbol, used by getDefinition
// and getReferences (§4.6).
type Location struct {
	Path      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}
