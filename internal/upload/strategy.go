package upload

// Strategy names how a file travels to the object store.
type Strategy int

const (
	// StrategyInline sends the whole payload through the server in one
	// multipart-form request.
	StrategyInline Strategy = iota
	// StrategyPresignedPut uploads directly to the store with a one-shot
	// presigned URL, then confirms with the server.
	StrategyPresignedPut
	// StrategyMultipart drives the full multipart session, one part at a
	// time.
	StrategyMultipart
)

func (s Strategy) String() string {
	switch s {
	case StrategyInline:
		return "inline"
	case StrategyPresignedPut:
		return "presigned-put"
	case StrategyMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// Thresholds are the two size boundaries, in bytes.
type Thresholds struct {
	InlineMax    int64
	SinglePutMax int64
}

// SelectStrategy picks the upload strategy for a file size. Pure function
// of the size and the configured thresholds.
func SelectStrategy(sizeBytes int64, t Thresholds) Strategy {
	switch {
	case sizeBytes <= t.InlineMax:
		return StrategyInline
	case sizeBytes <= t.SinglePutMax:
		return StrategyPresignedPut
	default:
		return StrategyMultipart
	}
}
