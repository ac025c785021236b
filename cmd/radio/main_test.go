package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebovdev/radio-cli/internal/service"
	"github.com/glebovdev/radio-cli/internal/station"
)

type stubDirectory struct {
	stations []station.Station
}

func (d stubDirectory) StationsByCountry(ctx context.Context, country string) ([]station.Station, error) {
	return d.stations, nil
}

func (d stubDirectory) StationsByName(ctx context.Context, name string) ([]station.Station, error) {
	return d.stations, nil
}

func makeStations(n int) []station.Station {
	stations := make([]station.Station, n)
	for i := range stations {
		stations[i] = station.New(
			fmt.Sprintf("id-%d", i),
			fmt.Sprintf("Station %d", i),
			"Peru",
			[]string{"http://example.com/stream"},
			"",
			"pop, rock",
			station.SourceRadioBrowser,
		)
	}
	return stations
}

func TestPrintStations(t *testing.T) {
	page := service.Page{
		Stations: []station.Station{
			station.New("1", "Radio Uno", "Peru", []string{"http://a"}, "", "news, talk", station.SourceRadioBrowser),
			station.New("2", "Sin Tags", "", []string{"http://b"}, "", "", station.SourceTuneIn),
		},
		Status: service.StatusOK,
	}

	var buf bytes.Buffer
	if err := printStations(&buf, page); err != nil {
		t.Fatalf("printStations() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"NAME", "Radio Uno", "news, talk", "radio-browser", "Sin Tags", "tunein"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Errorf("got %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[2], " - ") {
		t.Errorf("empty fields should render as '-', got %q", lines[2])
	}
	if strings.Contains(out, "--pages") {
		t.Error("should not hint at more pages when HasMore is false")
	}
}

func TestPrintStationsMessages(t *testing.T) {
	tests := []struct {
		name    string
		page    service.Page
		wantOut string
		wantErr bool
	}{
		{
			name:    "empty result prints message",
			page:    service.Page{Status: service.StatusEmpty, Message: "No stations found for Atlantis."},
			wantOut: "No stations found for Atlantis.\n",
		},
		{
			name:    "failure is an error",
			page:    service.Page{Status: service.StatusFailed, Message: "Could not load stations for Peru. Please try again later."},
			wantErr: true,
		},
		{
			name:    "more pages hint",
			page:    service.Page{Stations: makeStations(2), Status: service.StatusOK, HasMore: true},
			wantOut: "Showing 2 stations. Use --pages to list more.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printStations(&buf, tt.page)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printStations() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if err.Error() != tt.page.Message {
					t.Errorf("error = %q, want %q", err.Error(), tt.page.Message)
				}
				return
			}
			if !strings.Contains(buf.String(), tt.wantOut) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.wantOut)
			}
		})
	}
}

func TestFetchPages(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		want  int
	}{
		{"single page", 1, 50},
		{"two pages", 2, 100},
		{"stops at total", 5, 120},
		{"zero treated as one", 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewStationService(stubDirectory{stations: makeStations(120)}, nil, nil)
			page := svc.FetchByCountry(context.Background(), "Peru")
			page = fetchPages(svc, page, tt.pages)
			if len(page.Stations) != tt.want {
				t.Errorf("got %d stations, want %d", len(page.Stations), tt.want)
			}
		})
	}
}

func TestPickStation(t *testing.T) {
	page := service.Page{Stations: makeStations(3)}

	tests := []struct {
		index   int
		wantID  string
		wantErr bool
	}{
		{1, "id-0", false},
		{3, "id-2", false},
		{0, "", true},
		{4, "", true},
		{-1, "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("index_%d", tt.index), func(t *testing.T) {
			st, err := pickStation(page, tt.index)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pickStation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if st.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", st.ID, tt.wantID)
			}
		})
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"search", "country", "play", "cache", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("debug") == nil {
		t.Error("missing --debug flag")
	}
	if root.Flags().Lookup("random") == nil {
		t.Error("missing --random flag")
	}
}

func TestDash(t *testing.T) {
	if got := dash(""); got != "-" {
		t.Errorf("dash(\"\") = %q, want \"-\"", got)
	}
	if got := dash("Peru"); got != "Peru" {
		t.Errorf("dash(\"Peru\") = %q, want \"Peru\"", got)
	}
}
