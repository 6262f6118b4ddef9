package notifier

import (
	"errors"
	"testing"
	"time"
)

// mockNotifier is a test helper that implements Notifier interface
type mockNotifier struct {
	alerts      []TradeAlert
	closeErr    error
	closeCalled bool
}

func (m *mockNotifier) SendTradeAlert(alert TradeAlert) {
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) Close() error {
	m.closeCalled = true
	return m.closeErr
}

func TestNewMultiNotifier_FiltersNil(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, nil, mock2, nil)

	if mn.Count() != 2 {
		t.Errorf("expected 2 notifiers, got %d", mn.Count())
	}
}

func TestNewMultiNotifier_AllNil(t *testing.T) {
	mn := NewMultiNotifier(nil, nil, nil)

	if mn.Count() != 0 {
		t.Errorf("expected 0 notifiers, got %d", mn.Count())
	}
}

func TestMultiNotifier_SendTradeAlert(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, mock2)

	alert := TradeAlert{
		MarketTicker:  "FED-24DEC-T450",
		MarketTitle:   "Fed funds rate above 4.5%",
		Side:          "yes",
		Notional:      15000,
		MinutesBefore: 40,
		RiskTier:      RiskTierMedium,
		Window:        WindowPreEvent,
	}

	mn.SendTradeAlert(alert)

	if len(mock1.alerts) != 1 {
		t.Errorf("expected 1 alert for mock1, got %d", len(mock1.alerts))
	}
	if len(mock2.alerts) != 1 {
		t.Errorf("expected 1 alert for mock2, got %d", len(mock2.alerts))
	}
	if mock1.alerts[0].MarketTicker != "FED-24DEC-T450" {
		t.Errorf("expected ticker FED-24DEC-T450, got %s", mock1.alerts[0].MarketTicker)
	}
	if mock1.alerts[0].RiskTier != RiskTierMedium {
		t.Errorf("expected medium tier, got %s", mock1.alerts[0].RiskTier)
	}
}

func TestMultiNotifier_SendTradeAlert_NoNotifiers(t *testing.T) {
	mn := NewMultiNotifier()

	alert := TradeAlert{MarketTicker: "TEST", Timestamp: time.Now()}

	// Should not panic
	mn.SendTradeAlert(alert)
}

func TestMultiNotifier_Close_Success(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, mock2)

	err := mn.Close()

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !mock1.closeCalled {
		t.Error("expected mock1.Close() to be called")
	}
	if !mock2.closeCalled {
		t.Error("expected mock2.Close() to be called")
	}
}

func TestMultiNotifier_Close_WithError(t *testing.T) {
	expectedErr := errors.New("close error")
	mock1 := &mockNotifier{closeErr: expectedErr}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, mock2)

	err := mn.Close()

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	// Both should still be called
	if !mock1.closeCalled {
		t.Error("expected mock1.Close() to be called")
	}
	if !mock2.closeCalled {
		t.Error("expected mock2.Close() to be called")
	}
}

func TestMultiNotifier_Count(t *testing.T) {
	tests := []struct {
		name      string
		notifiers []Notifier
		expected  int
	}{
		{"empty", []Notifier{}, 0},
		{"one", []Notifier{&mockNotifier{}}, 1},
		{"three", []Notifier{&mockNotifier{}, &mockNotifier{}, &mockNotifier{}}, 3},
		{"with nils", []Notifier{&mockNotifier{}, nil, &mockNotifier{}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mn := NewMultiNotifier(tt.notifiers...)
			if mn.Count() != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, mn.Count())
			}
		})
	}
}

func TestRiskTier_Values(t *testing.T) {
	tests := []struct {
		tier     RiskTier
		expected string
	}{
		{RiskTierCritical, "critical"},
		{RiskTierHigh, "high"},
		{RiskTierMedium, "medium"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.tier) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(tt.tier))
			}
		})
	}
}

func TestAlertWindow_Values(t *testing.T) {
	if string(WindowPreEvent) != "pre_event" {
		t.Errorf("unexpected pre-event window value: %s", WindowPreEvent)
	}
	if string(WindowPreClose) != "pre_close" {
		t.Errorf("unexpected pre-close window value: %s", WindowPreClose)
	}
}
