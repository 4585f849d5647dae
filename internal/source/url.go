package source

import (
	"fmt"
	"regexp"
)

// Matches twitter.com and x.com status URLs, with or without query
// parameters, e.g. https://x.com/someone/status/1234567890?s=20.
var statusURLPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/[^/]+/status/(\d+)`)

// ExtractTweetID pulls the numeric status id out of a twitter.com or
// x.com URL.
func ExtractTweetID(postURL string) (string, error) {
	m := statusURLPattern.FindStringSubmatch(postURL)
	if m == nil {
		return "", fmt.Errorf("not a recognizable tweet URL: %q", postURL)
	}
	return m[1], nil
}

// StatusURL builds the canonical x.com status URL for a tweet. When the
// author handle is unknown the "i" placeholder is used, which x.com
// resolves for any account.
func StatusURL(authorHandle, tweetID string) string {
	if authorHandle == "" {
		authorHandle = "i"
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", authorHandle, tweetID)
}
