// Package probe derives device, geo and attribution data from ambient
// host signals supplied at tracker construction.
package probe

// Environment is a snapshot of the host runtime's ambient signals,
// captured by the embedding application and handed to the tracker at
// construction. ScrollDepth is a callback because scroll position
// changes over the page's lifetime.
type Environment struct {
	UserAgent      string
	ScreenWidth    int
	ScreenHeight   int
	ColorDepth     int
	Timezone       string
	Language       string
	MaxTouchPoints int
	TouchCapable   bool
	PageURL        string
	PageTitle      string
	Referrer       string
	ViewportWidth  int
	ViewportHeight int
	ScrollDepth    func() int
}

// CurrentScrollDepth returns the scroll depth percentage, or 0 when the
// host did not provide a scroll callback.
func (e Environment) CurrentScrollDepth() int {
	if e.ScrollDepth == nil {
		return 0
	}
	return e.ScrollDepth()
}
