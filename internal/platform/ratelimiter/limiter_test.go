package ratelimiter

import (
	"testing"
	"time"
)

func TestKeyLimiter_Burst(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Unix(1700000000, 0)

	if !l.Allow("peer-a", now) || !l.Allow("peer-a", now) {
		t.Fatal("Burst of 2 should be allowed")
	}
	if l.Allow("peer-a", now) {
		t.Error("Third call in the same instant should be limited")
	}
	if !l.Allow("peer-b", now) {
		t.Error("Keys must not share buckets")
	}
	if !l.Allow("peer-a", now.Add(time.Second)) {
		t.Error("Token should refill after one second")
	}
}

func TestKeyLimiter_NilAllowsAll(t *testing.T) {
	l := New(0, 0, 0)
	if l != nil {
		t.Fatal("Expected nil limiter for zero rate")
	}
	if !l.Allow("peer", time.Now()) {
		t.Error("Nil limiter must allow")
	}
}

func TestKeyLimiter_SweepsIdle(t *testing.T) {
	l := New(100, 100, time.Second)
	start := time.Unix(1700000000, 0)

	l.Allow("idle", start)
	later := start.Add(time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Allow("busy", later)
	}

	if l.Len() != 1 {
		t.Errorf("Expected idle key to be swept, tracking %d keys", l.Len())
	}
}
