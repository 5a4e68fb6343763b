package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestChildren(t *testing.T) {
	entries := []Node{
		{Key: "/a/z", Value: "1"},
		{Key: "/a/b/c", Value: "2"},
		{Key: "/a/b/d", Value: "3"},
		{Key: "/a/", Value: "self"},
		{Key: "/ab", Value: "4"},
	}

	got := Children("/a", entries)
	want := []Node{{Key: "/a/b", Dir: true}, {Key: "/a/z", Value: "1"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d nodes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	if p := ChildPrefix("/"); p != "/" {
		t.Errorf("expected root prefix /, got %q", p)
	}
	if p := ChildPrefix("/a/"); p != "/a/" {
		t.Errorf("expected /a/, got %q", p)
	}
}

func TestErrorCodes(t *testing.T) {
	if CodeOf(nil) != RetCSuccess {
		t.Error("nil error must map to success")
	}
	if CodeOf(errors.New("plain")) != RetCInternalError {
		t.Error("plain error must map to internal error")
	}

	wrapped := fmt.Errorf("op: %w", NewError(RetCInvalidOperation, "bad key"))
	if CodeOf(wrapped) != RetCInvalidOperation {
		t.Errorf("expected InvalidOperation, got %s", CodeOf(wrapped))
	}
	if !IsPermanent(wrapped) {
		t.Error("invalid operation must be permanent")
	}
	if IsPermanent(Errorf(RetCUnavailable, "down")) {
		t.Error("unavailable must not be permanent")
	}
	if got := NewError(RetCUnavailable, "down").Error(); got != "StoreError (code Unavailable): down" {
		t.Errorf("unexpected message %q", got)
	}
}
