package wrapper

import (
	"errors"
	"net/http"
	"testing"
)

func TestZeroResultIsAFailure(t *testing.T) {
	var r Result[int]
	if _, err := r.Unwrap(); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if r.IsOK() {
		t.Fatal("zero result must not report success")
	}
}

func TestMatchRunsOneBranch(t *testing.T) {
	var okCalls, errCalls int
	Ok(5).Match(func(int) { okCalls++ }, func(error) { errCalls++ })
	Fail[int](errors.New("boom")).Match(func(int) { okCalls++ }, func(error) { errCalls++ })

	if okCalls != 1 || errCalls != 1 {
		t.Fatalf("ok=%d err=%d", okCalls, errCalls)
	}
}

func TestWarningsSurviveMapAndJSON(t *testing.T) {
	r := Ok("acct-1").WithWarning("profile insert failed")
	mapped := Map(r, func(s string) int { return len(s) })

	if got := mapped.Warnings(); len(got) != 1 || got[0] != "profile insert failed" {
		t.Fatalf("warnings lost in Map: %v", got)
	}

	res := ToJSON(mapped, http.StatusCreated, http.StatusBadRequest)
	if !res.Success || res.Code != http.StatusCreated || len(res.Warnings) != 1 {
		t.Fatalf("unexpected envelope %+v", res)
	}
}

func TestFailNilErrorStillFails(t *testing.T) {
	if Fail[string](nil).IsOK() {
		t.Fatal("Fail(nil) must not be ok")
	}
}
