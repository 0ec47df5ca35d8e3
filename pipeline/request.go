package pipeline

// Request carries one JSON emission batch to decode with the named configuration.
type Request struct {
	Tid     string `json:"tid"`
	Config  string `json:"config"`
	Payload []byte `json:"-"`
}

// Pipeline returns a channel that yields one JSON response. A channel closed
// without a value means the request failed.
type Pipeline func(request Request) <-chan string
