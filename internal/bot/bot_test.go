package bot

import "testing"

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "08:30", want: "0 30 8 * * *"},
		{in: " 23:05 ", want: "0 5 23 * * *"},
		{in: "0:0", want: "0 0 0 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "12:30:00", wantErr: true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("buildDailySpec(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("buildDailySpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	b := &Bot{admins: map[int64]struct{}{42: {}, -1001: {}}}
	for id, want := range map[int64]bool{42: true, -1001: true, 7: false, 0: false} {
		if got := b.isAdmin(id); got != want {
			t.Fatalf("isAdmin(%d) = %v, want %v", id, got, want)
		}
	}
}

func TestScheduleDailyDigestEmptyIsNoop(t *testing.T) {
	b := &Bot{}
	if err := b.ScheduleDailyDigest("  ", nil); err != nil {
		t.Fatalf("ScheduleDailyDigest: %v", err)
	}
	if b.cron != nil {
		t.Fatal("no cron should be created for an empty time")
	}
	if err := b.ScheduleDailyDigest("99:00", nil); err == nil {
		t.Fatal("invalid time should be rejected")
	}
}
