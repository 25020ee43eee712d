package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusDraft, StatusConfirmed, true},
		{StatusDraft, StatusShipped, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusDraft, false},
		{StatusProcessing, StatusFulfilled, true},
		{StatusProcessing, StatusOnHold, false},
		{StatusPartial, StatusCancelled, true},
		{StatusFulfilled, StatusCancelled, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusShipped, StatusShipped, true},
		{StatusOnHold, StatusProcessing, true},
		{StatusOnHold, StatusDraft, false},
		{StatusFulfilled, StatusShipped, true},
		{StatusShipped, StatusFulfilled, false},
		{StatusProcessing, StatusPartial, true},
		{StatusOnHold, StatusShipped, true},
		{StatusCancelled, StatusOnHold, false},
		{StatusFailed, StatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []OrderStatus{StatusShipped, StatusCancelled, StatusFailed} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusDraft, StatusConfirmed, StatusProcessing, StatusPartial, StatusOnHold, StatusFulfilled} {
		if s.Terminal() {
			t.Fatalf("expected %s to accept transitions", s)
		}
	}
}
