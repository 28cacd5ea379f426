package tileserver

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/image/tiff"

	"globe-desktop/internal/geometry"
	"globe-desktop/internal/overlay"
	"globe-desktop/internal/pins"
	"globe-desktop/internal/texture"
	"globe-desktop/internal/tiles"
)

type fakeTiles struct{}

func (fakeTiles) FetchTile(_ context.Context, t tiles.Tile) ([]byte, bool, error) {
	switch t.X {
	case 0:
		return pngBytes(color.RGBA{1, 2, 3, 255}), true, nil
	case 1:
		return pngBytes(color.RGBA{4, 5, 6, 255}), false, nil
	default:
		return nil, false, errors.New("upstream down")
	}
}

type fakeTextures map[int]*texture.Texture

func (f fakeTextures) Cached(z int) (*texture.Texture, bool) {
	t, ok := f[z]
	return t, ok
}

type fakeMesh struct{ m *geometry.Mesh }

func (f fakeMesh) Mesh() *geometry.Mesh { return f.m }

type fakeOverlay struct{ tex *texture.Texture }

func (f fakeOverlay) Texture() *texture.Texture { return f.tex }
func (f fakeOverlay) Status() overlay.Status    { return overlay.Status{Simulated: true, Samples: 7} }

func pngBytes(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.SetRGBA(i%2, i/2, c)
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newTestServer(t *testing.T, src Sources) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(src, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().Close()
		ts.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestTileProxy(t *testing.T) {
	_, ts := newTestServer(t, Sources{Tiles: fakeTiles{}})

	tests := []struct {
		path       string
		status     int
		cache      string
		wantPixel  color.RGBA
		checkPixel bool
	}{
		{"/tiles/1/0/0", 200, "HIT", color.RGBA{1, 2, 3, 255}, true},
		{"/tiles/1/1/0", 200, "MISS", color.RGBA{4, 5, 6, 255}, true},
		{"/tiles/2/3/0", 200, "ERROR", color.RGBA{}, true},
		{"/tiles/1/2/0", 400, "", color.RGBA{}, false},
		{"/tiles/a/0/0", 400, "", color.RGBA{}, false},
	}
	for _, tt := range tests {
		resp, body := get(t, ts.URL+tt.path)
		if resp.StatusCode != tt.status {
			t.Errorf("%s status = %d, want %d", tt.path, resp.StatusCode, tt.status)
			continue
		}
		if got := resp.Header.Get("X-Cache-Status"); got != tt.cache {
			t.Errorf("%s X-Cache-Status = %q, want %q", tt.path, got, tt.cache)
		}
		if !tt.checkPixel {
			continue
		}
		img, err := png.Decode(bytes.NewReader(body))
		if err != nil {
			t.Errorf("%s: %v", tt.path, err)
			continue
		}
		if got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA); got != tt.wantPixel {
			t.Errorf("%s pixel = %v, want %v", tt.path, got, tt.wantPixel)
		}
	}
}

func TestTextures(t *testing.T) {
	red := color.RGBA{200, 10, 10, 255}
	tex := texture.New(solid(4, 4, red))
	_, ts := newTestServer(t, Sources{Textures: fakeTextures{2: tex}})

	resp, body := get(t, ts.URL+"/textures/2.png")
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("png: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("X-Texture-Version") != "1" {
		t.Errorf("X-Texture-Version = %q", resp.Header.Get("X-Texture-Version"))
	}
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil || img.Bounds().Dx() != 4 {
		t.Fatalf("decode png: %v", err)
	}

	resp, body = get(t, ts.URL+"/textures/2.tif")
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/tiff" {
		t.Fatalf("tif: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	timg, err := tiff.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode tif: %v", err)
	}
	if got := color.RGBAModel.Convert(timg.At(3, 3)).(color.RGBA); got != red {
		t.Errorf("tif pixel = %v, want %v", got, red)
	}

	for path, want := range map[string]int{
		"/textures/3.png":   404,
		"/textures/2.jpg":   400,
		"/textures/two.png": 400,
		"/textures/2":       400,
	} {
		if resp, _ := get(t, ts.URL+path); resp.StatusCode != want {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestMesh(t *testing.T) {
	_, ts := newTestServer(t, Sources{Mesh: fakeMesh{}})
	if resp, _ := get(t, ts.URL+"/mesh"); resp.StatusCode != 404 {
		t.Errorf("uninitialised mesh status = %d", resp.StatusCode)
	}

	m, err := geometry.Project(1, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	_, ts = newTestServer(t, Sources{Mesh: fakeMesh{m}})
	resp, body := get(t, ts.URL+"/mesh")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out geometry.Mesh
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Positions) != len(m.Positions) || len(out.UVs) != len(m.UVs) || len(out.Indices) != len(m.Indices) {
		t.Errorf("mesh sizes = %d/%d/%d", len(out.Positions), len(out.UVs), len(out.Indices))
	}
}

func TestOverlayAndLegend(t *testing.T) {
	tex := texture.New(solid(8, 4, color.RGBA{0, 0, 255, 128}))
	_, ts := newTestServer(t, Sources{Overlay: fakeOverlay{tex}, LegendNote: overlay.RefreshNote(10)})

	resp, body := get(t, ts.URL+"/overlay.png")
	if resp.StatusCode != 200 {
		t.Fatalf("overlay status = %d", resp.StatusCode)
	}
	if img, err := png.Decode(bytes.NewReader(body)); err != nil || img.Bounds().Dx() != 8 {
		t.Errorf("overlay decode: %v", err)
	}

	tex.Update(func(*image.RGBA) {})
	resp, _ = get(t, ts.URL+"/overlay.png")
	if resp.Header.Get("X-Texture-Version") != "2" {
		t.Errorf("version after update = %q, want 2", resp.Header.Get("X-Texture-Version"))
	}

	resp, body = get(t, ts.URL+"/overlay/status")
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"samples":7`) {
		t.Errorf("status body = %s", body)
	}

	for i := 0; i < 2; i++ {
		resp, body = get(t, ts.URL+"/legend.png")
		if resp.StatusCode != 200 {
			t.Fatalf("legend status = %d", resp.StatusCode)
		}
		if _, err := png.Decode(bytes.NewReader(body)); err != nil {
			t.Errorf("legend decode: %v", err)
		}
	}

	_, ts = newTestServer(t, Sources{})
	if resp, _ := get(t, ts.URL+"/overlay.png"); resp.StatusCode != 404 {
		t.Errorf("disabled overlay status = %d", resp.StatusCode)
	}
}

func TestPins(t *testing.T) {
	set := pins.NewSet(func() string { return "p1" })
	if _, err := set.Add(10, 20, "Somewhere"); err != nil {
		t.Fatal(err)
	}
	_, ts := newTestServer(t, Sources{Pins: set})

	resp, body := get(t, ts.URL+"/pins.geojson")
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "application/geo+json" {
		t.Fatalf("pins: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), `"Somewhere"`) || !strings.Contains(string(body), `"FeatureCollection"`) {
		t.Errorf("body = %s", body)
	}
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t, Sources{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("Origin", "wails://wails")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestWebSocketEvents(t *testing.T) {
	s, ts := newTestServer(t, Sources{})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Hub().Broadcast("globe-state", map[string]interface{}{"state": "ready", "zoom": 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var ev struct {
		Event string `json:"event"`
		Data  struct {
			State string `json:"state"`
			Zoom  int    `json:"zoom"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Event != "globe-state" || ev.Data.State != "ready" || ev.Data.Zoom != 3 {
		t.Errorf("event = %+v", ev)
	}

	s.Hub().Close()
	if s.Hub().Len() != 0 {
		t.Errorf("Len after Close = %d", s.Hub().Len())
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(Sources{}, nil)
	if s.URL() != "" {
		t.Errorf("URL before Start = %q", s.URL())
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s.URL(), "http://127.0.0.1:") {
		t.Errorf("URL = %q", s.URL())
	}
	resp, _ := get(t, s.URL()+"/health")
	if resp.StatusCode != 200 {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
