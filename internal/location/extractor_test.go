package location

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestKeywordExtract(t *testing.T) {
	k := NewKeywordExtractor([]string{"London", "Tokyo", "Paris", "New York", "York"})

	tests := []struct {
		text string
		want []string
	}{
		{"I love London and also love Tokyo.", []string{"London", "Tokyo"}},
		{"tokyo, then LONDON, then tokyo again", []string{"Tokyo", "London"}},
		{"Parisian cafes are not Paris", []string{"Paris"}},
		{"Flights to New York and York", []string{"New York", "York"}},
		{"nothing here", []string{Unknown}},
		{"", []string{Unknown}},
	}
	for _, tt := range tests {
		got := k.Extract(context.Background(), tt.text)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestKeywordExtractorEmpty(t *testing.T) {
	k := NewKeywordExtractor([]string{" ", ""})
	if got := k.Extract(context.Background(), "London"); !IsUnknown(got) {
		t.Errorf("Extract = %v, want unknown", got)
	}
	if len(k.Keywords()) != 0 {
		t.Errorf("Keywords = %v", k.Keywords())
	}
}

func TestServiceClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"content":"Storm hits Lima"`) {
			t.Errorf("body = %s", b)
		}
		w.Write([]byte(`{"location":"  Lima  Peru "}`))
	}))
	defer srv.Close()

	c := NewServiceClient(srv.URL, false, nil)
	got := c.Extract(context.Background(), "Storm hits Lima")
	if want := []string{"Lima", "Peru"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestServiceClientFailures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"location":"   "}`))
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			got := NewServiceClient(srv.URL, true, nil).Extract(context.Background(), "x")
			if !reflect.DeepEqual(got, []string{Unknown}) {
				t.Errorf("Extract = %v, want [%s]", got, Unknown)
			}
		})
	}
}

func TestServiceClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	got := NewServiceClient(url, false, nil).Extract(context.Background(), "x")
	if !reflect.DeepEqual(got, []string{Unknown}) {
		t.Errorf("Extract = %v", got)
	}
}

type staticExtractor []string

func (s staticExtractor) Extract(context.Context, string) []string { return s }

func TestChain(t *testing.T) {
	keywords := NewKeywordExtractor([]string{"Tokyo"})

	c := NewChain(nil, staticExtractor{Unknown}, nil, keywords)
	if got := c.Extract(context.Background(), "Rain in Tokyo"); !reflect.DeepEqual(got, []string{"Tokyo"}) {
		t.Errorf("fallback = %v", got)
	}

	c = NewChain(nil, staticExtractor{"Osaka"}, keywords)
	if got := c.Extract(context.Background(), "Rain in Tokyo"); !reflect.DeepEqual(got, []string{"Osaka"}) {
		t.Errorf("first stage = %v", got)
	}

	c = NewChain(nil, staticExtractor{}, keywords)
	if got := c.Extract(context.Background(), "nothing"); !reflect.DeepEqual(got, []string{Unknown}) {
		t.Errorf("all unknown = %v", got)
	}
}
