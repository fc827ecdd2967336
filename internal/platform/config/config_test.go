package config

import (
	"testing"
	"time"

	kit "invitehound/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	mon := root.Prefix("MONITOR_")
	if got := mon.key("PORT"); got != "MONITOR_PORT" {
		t.Fatalf("key() = %q, want %q", got, "MONITOR_PORT")
	}
	// nested prefix
	monOCR := mon.Prefix("OCR_")
	if got := monOCR.key("KEY"); got != "MONITOR_OCR_KEY" {
		t.Fatalf("nested key() = %q, want %q", got, "MONITOR_OCR_KEY")
	}
}

// Must* panics

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  invitehound ")
	got := c.MustString("NAME")
	if got != "invitehound" {
		t.Fatalf("MustString = %q, want %q", got, "invitehound")
	}

	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMustInt(t *testing.T) {
	c := New().Prefix("SVC_")
	t.Setenv("SVC_RETRIES", "  10 ")
	if got := c.MustInt("RETRIES"); got != 10 {
		t.Fatalf("MustInt = %d, want %d", got, 10)
	}
	kit.MustPanic(t, func() { _ = c.MustInt("MISSING") })
	t.Setenv("SVC_BAD", "x")
	kit.MustPanic(t, func() { _ = c.MustInt("BAD") })
}

func TestMustPort(t *testing.T) {
	c := New().Prefix("API_")
	t.Setenv("API_PORT", "10000")
	if got := c.MustPort("PORT"); got != ":10000" {
		t.Fatalf("MustPort = %q", got)
	}
	t.Setenv("API_PORT", "70000")
	kit.MustPanic(t, func() { _ = c.MustPort("PORT") })
}

func TestRequire(t *testing.T) {
	c := New().Prefix("REQ_")
	t.Setenv("REQ_A", "1")
	t.Setenv("REQ_B", "2")
	kit.MustNotPanic(t, func() { c.Require("A", "B") })
	kit.MustPanic(t, func() { c.Require("A", "MISSING") })
}

// May* fallbacks

func TestMayStringIntBool(t *testing.T) {
	c := New().Prefix("M_")
	t.Setenv("M_S", " v ")
	t.Setenv("M_I", "3")
	t.Setenv("M_IBAD", "three")
	t.Setenv("M_B", "false")

	if got := c.MayString("S", "d"); got != "v" {
		t.Fatalf("MayString = %q", got)
	}
	if got := c.MayString("NOPE", "d"); got != "d" {
		t.Fatalf("MayString default = %q", got)
	}
	if got := c.MayInt("I", 9); got != 3 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayInt("IBAD", 9); got != 9 {
		t.Fatalf("MayInt invalid should default, got %d", got)
	}
	if got := c.MayBool("B", true); got {
		t.Fatalf("MayBool = %v", got)
	}
	if got := c.MayBool("NOPE", true); !got {
		t.Fatalf("MayBool default = %v", got)
	}
}

func TestMayDuration(t *testing.T) {
	c := New().Prefix("D_")
	t.Setenv("D_POLL", "250ms")
	if got := c.MayDuration("POLL", time.Second); got != 250*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
	t.Setenv("D_BAD", "soon")
	if got := c.MayDuration("BAD", time.Second); got != time.Second {
		t.Fatalf("MayDuration invalid should default, got %v", got)
	}
}

func TestMaySeconds(t *testing.T) {
	c := New().Prefix("W_")

	// bare seconds and duration forms are the same bound expressed two ways
	t.Setenv("W_RECENCY", "120")
	if got := c.MaySeconds("RECENCY", time.Second); got != 120*time.Second {
		t.Fatalf("MaySeconds bare = %v", got)
	}
	t.Setenv("W_RECENCY", "2m")
	if got := c.MaySeconds("RECENCY", time.Second); got != 2*time.Minute {
		t.Fatalf("MaySeconds duration = %v", got)
	}
	t.Setenv("W_RECENCY", "whenever")
	if got := c.MaySeconds("RECENCY", 5*time.Second); got != 5*time.Second {
		t.Fatalf("MaySeconds invalid should default, got %v", got)
	}
}
