package ratelimit

import (
	"testing"
	"time"
)

func TestNewIsNotLimited(t *testing.T) {
	l := New()
	if l.Limited() {
		t.Fatal("fresh limiter reports limited")
	}
}

func TestTripSetsLimited(t *testing.T) {
	l := New()
	l.Trip(time.Now().Add(time.Hour).Unix(), "issues")
	if !l.Limited() {
		t.Fatal("limiter not limited after trip")
	}
}

func TestTripClearsAtReset(t *testing.T) {
	l := New()
	l.Trip(time.Now().Add(time.Second).Unix(), "issues")

	// Must hold for the full window.
	time.Sleep(100 * time.Millisecond)
	if !l.Limited() {
		t.Fatal("limiter cleared before the reset time")
	}

	deadline := time.Now().Add(3 * time.Second)
	for l.Limited() {
		if time.Now().After(deadline) {
			t.Fatal("limiter never cleared after the reset time")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestTripWithPastResetClearsImmediately(t *testing.T) {
	l := New()
	l.Trip(time.Now().Add(-time.Minute).Unix(), "comments")

	deadline := time.Now().Add(time.Second)
	for l.Limited() {
		if time.Now().After(deadline) {
			t.Fatal("limiter stuck limited despite past reset time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRetripReplacesReset(t *testing.T) {
	l := New()
	l.Trip(time.Now().Add(-time.Minute).Unix(), "issues")
	l.Trip(time.Now().Add(time.Hour).Unix(), "issues")

	// The first trip's immediate reset must not clear the second.
	time.Sleep(200 * time.Millisecond)
	if !l.Limited() {
		t.Fatal("re-trip did not replace the pending reset")
	}
}
