package domain

import "testing"

func TestSide_Valid(t *testing.T) {
	tests := []struct {
		side Side
		want bool
	}{
		{SideBuy, true},
		{SideSell, true},
		{Side(""), false},
		{Side("hold"), false},
		{Side("BUY"), false},
	}
	for _, tt := range tests {
		if got := tt.side.Valid(); got != tt.want {
			t.Errorf("Side(%q).Valid() = %v, want %v", tt.side, got, tt.want)
		}
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell {
		t.Errorf("SideBuy.Opposite() = %q, want %q", SideBuy.Opposite(), SideSell)
	}
	if SideSell.Opposite() != SideBuy {
		t.Errorf("SideSell.Opposite() = %q, want %q", SideSell.Opposite(), SideBuy)
	}
}

func TestOrder_Terminal(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusResting, false},
		{OrderStatusPartiallyFilled, false},
		{OrderStatusFilled, true},
		{OrderStatusCanceled, true},
		{OrderStatusRejected, true},
	}
	for _, tt := range tests {
		o := &Order{Status: tt.status}
		if got := o.Terminal(); got != tt.want {
			t.Errorf("Terminal() with status %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}
