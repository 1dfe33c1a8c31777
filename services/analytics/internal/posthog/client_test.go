package posthog

import "testing"

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	c.Capture(Event{DistinctID: "dev-1", Name: "app_viewed"})
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
