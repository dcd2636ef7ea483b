package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
		{NewDate(1900, 1, 1), true},
		{NewDate(2199, 12, 31), true},
		{NewDate(1899, 12, 31), false},
		{NewDate(2200, 1, 1), false},
		{NewDate(20240, 1, 15), false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateValidate_YearRange(t *testing.T) {
	err := NewDate(5000, 1, 1).Validate()
	assert.ErrorIs(t, err, ErrInvalidYear)
	assert.Contains(t, err.Error(), "5000")
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Date
		ok   bool
	}{
		{name: "plain date", in: "2024-01-15", want: NewDate(2024, 1, 15), ok: true},
		{name: "iso timestamp keeps calendar day", in: "2024-01-15T23:30:00.000Z", want: NewDate(2024, 1, 15), ok: true},
		{name: "offset does not shift day", in: "2024-03-01T00:00:00-08:00", want: NewDate(2024, 3, 1), ok: true},
		{name: "garbage", in: "15/01/2024", ok: false},
		{name: "empty", in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	jan31 := NewDate(2024, 1, 31)
	assert.Equal(t, "2024-03-02", jan31.AddMonths(1).String(), "leap year rollover")
	assert.Equal(t, "2023-03-03", NewDate(2023, 1, 31).AddMonths(1).String())
	assert.Equal(t, "2024-02-29", NewDate(2024, 2, 10).LastOfMonth().String())
	assert.Equal(t, "2024-02-01", NewDate(2024, 2, 10).FirstOfMonth().String())
	assert.Equal(t, 19, NewDate(2024, 1, 20).DaysSince(NewDate(2024, 1, 1)))
	assert.Equal(t, -3, NewDate(2023, 12, 29).DaysSince(NewDate(2024, 1, 1)))
	assert.True(t, NewDate(2024, 1, 15).Between(NewDate(2024, 1, 15), NewDate(2024, 1, 28)))
	assert.False(t, NewDate(2024, 1, 29).Between(NewDate(2024, 1, 15), NewDate(2024, 1, 28)))
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrapper{D: NewDate(2024, 7, 4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-07-04"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-07-04T10:00:00Z"}`), &w))
	assert.Equal(t, "2024-07-04", w.D.String())

	require.NoError(t, json.Unmarshal([]byte(`{"d":""}`), &w))
	assert.True(t, w.D.IsEmpty())
}

func TestMasterExpenseValidate(t *testing.T) {
	good := MasterExpense{
		Name:      "Rent",
		Amount:    decimal.NewFromInt(-1200),
		Type:      Withdrawal,
		DueDate:   NewDate(2024, 1, 1),
		Frequency: Monthly,
	}
	require.NoError(t, good.Validate())

	bads := map[string]func(e *MasterExpense){
		"empty name":      func(e *MasterExpense) { e.Name = " " },
		"zero amount":     func(e *MasterExpense) { e.Amount = decimal.Zero },
		"sign mismatch":   func(e *MasterExpense) { e.Amount = decimal.NewFromInt(1200) },
		"bad frequency":   func(e *MasterExpense) { e.Frequency = "yearly" },
		"bad type":        func(e *MasterExpense) { e.Type = "transfer" },
		"missing duedate": func(e *MasterExpense) { e.DueDate = Date{} },
	}
	for name, mutate := range bads {
		t.Run(name, func(t *testing.T) {
			e := good
			mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestBankAccountValidate(t *testing.T) {
	require.NoError(t, MasterBankAccount{Name: "Checking", Color: "#1E88E5"}.Validate())
	assert.ErrorIs(t, MasterBankAccount{Name: "Checking", Color: "blue"}.Validate(), ErrInvalidColor)
	assert.ErrorIs(t, MasterBankAccount{Name: ""}.Validate(), ErrEmptyName)
}

func TestPayInfoValidate(t *testing.T) {
	good := PayInfo{PayFrequency: PayBiWeekly, StartDate: NewDate(2024, 1, 1), TakeHomePay: decimal.NewFromInt(2000)}
	require.NoError(t, good.Validate())

	bad := good
	bad.PayFrequency = "daily"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPayFrequency)

	bad = good
	bad.TakeHomePay = decimal.NewFromInt(-1)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidAmount)
}

func TestIDSetHelpers(t *testing.T) {
	ids := AddID(nil, "a")
	ids = AddID(ids, "b")
	ids = AddID(ids, "a")
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []string{"b"}, RemoveID(ids, "a"))
	assert.Equal(t, "2024-01-15-exp1", CompositeID("2024-01-15", "exp1"))
}

func TestContrastColor(t *testing.T) {
	assert.Equal(t, "#000000", ContrastColor("#FFFFFF"))
	assert.Equal(t, "#FFFFFF", ContrastColor("#000000"))
	assert.Equal(t, "#FFFFFF", ContrastColor("1E3A8A"))
	assert.Equal(t, "#000000", ContrastColor("#zzz"))
}

func TestSummarizePeriod(t *testing.T) {
	totals := SummarizePeriod([]PayPeriodExpense{
		{Amount: decimal.NewFromInt(-50), IsPaid: true},
		{Amount: decimal.NewFromInt(20)},
		{Amount: decimal.NewFromInt(-10)},
	})
	assert.True(t, totals.Deposits.Equal(decimal.NewFromInt(20)))
	assert.True(t, totals.Withdrawals.Equal(decimal.NewFromInt(-60)))
	assert.True(t, totals.Net.Equal(decimal.NewFromInt(-40)))
	assert.Equal(t, 1, totals.Paid)
	assert.Equal(t, 2, totals.Unpaid)
}
