package models

import "testing"

func strptr(s string) *string { return &s }

func TestMerge_COALESCE(t *testing.T) {
	existing := ShadowAccount{
		AccountID: "1",
		Username:  "alice",
		Bio:       strptr("hello"),
		Location:  nil,
	}
	patch := ShadowAccount{
		Bio:      nil,
		Location: strptr("NYC"),
	}
	merged := existing.Merge(patch)
	if merged.Bio == nil || *merged.Bio != "hello" {
		t.Errorf("expected bio to be preserved, got %v", merged.Bio)
	}
	if merged.Location == nil || *merged.Location != "NYC" {
		t.Errorf("expected location to be set from patch, got %v", merged.Location)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := ShadowAccount{AccountID: "1", Username: "alice", Bio: strptr("hi")}
	once := a.Merge(a)
	twice := once.Merge(a)
	if *once.Bio != *twice.Bio || once.Username != twice.Username {
		t.Error("applying the same patch twice should equal applying it once")
	}
}

func TestMerge_NeverDecreasesNonNullFields(t *testing.T) {
	a := ShadowAccount{Bio: strptr("hi"), Location: strptr("NYC")}
	b := ShadowAccount{} // all-nil patch
	merged := a.Merge(b)
	if merged.Bio == nil || merged.Location == nil {
		t.Fatal("merge must never null out a previously non-null field")
	}
}
