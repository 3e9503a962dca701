package ui

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestRenderTreeGolden(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	entries := []string{
		"email/gmail.com",
		"email/work/exchange",
		"bank",
		"social/mastodon",
		"email/proton.me",
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "store_tree", []byte(RenderTree("Password Store", entries)))
}

func TestRenderTreeEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderTree("Password Store", nil)
	if got != "Password Store\n" {
		t.Errorf("RenderTree(nil) = %q, want title only", got)
	}
}

func TestRenderTreeSubfolderTitle(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderTree("email", []string{"gmail.com"})
	if !strings.HasPrefix(got, "email\n") || !strings.Contains(got, "└── gmail.com") {
		t.Errorf("RenderTree() = %q", got)
	}
}
