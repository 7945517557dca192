package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	app "ecotachos/internal/application"
	"ecotachos/internal/container"
	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
	"ecotachos/internal/infrastructure/export"
	"ecotachos/internal/infrastructure/storage"
	"ecotachos/internal/infrastructure/vision"
)

type stubBackend struct {
	body string
	err  error
}

func (b *stubBackend) Kind() entity.BackendKind { return entity.BackendRoboflowWorkflow }

func (b *stubBackend) Classify(ctx context.Context, img *entity.NormalizedImage) (*entity.RawResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &entity.RawResponse{Backend: b.Kind(), Scale: entity.ScaleFraction, Body: []byte(b.body)}, nil
}

func (b *stubBackend) Probe(ctx context.Context) error { return b.err }

func (b *stubBackend) Info() entity.BackendInfo {
	return entity.BackendInfo{Kind: b.Kind(), Target: "eco/wf"}
}

func newTestServer(t *testing.T, backend port.InferenceBackend) (http.Handler, *container.Container) {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateUp(db))

	c := container.New(container.Deps{
		Users:      storage.NewMemoryUserRepository(),
		Codec:      vision.NewCodec(),
		Backends:   []port.InferenceBackend{backend},
		Actuations: storage.NewMemoryActuationStore(),
		Detections: storage.NewSQLDetectionRepository(db),
		Bins:       storage.NewSQLBinRepository(db),
		Exporter:   export.NewXLSXExporter(nil),
		Family:     "roboflow",
	})
	return NewServer(c, 5*time.Second, nil).Handler(), c
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 40, G: 160, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func classifyReq(t *testing.T, binCode string) app.ClassifyRequest {
	return app.ClassifyRequest{Image: entity.ImageInput{Data: pngBytes(t)}, BinCode: binCode}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

const recyclableBody = `{"outputs":[{"predictions":{"predictions":[{"class":"Orgánicos","confidence":0.42}]}},{"detections":[{"label":"reciclable","score":0.91}]}]}`

func TestDetect_MultipartRecordsAndActuates(t *testing.T) {
	h, c := newTestServer(t, &stubBackend{body: recyclableBody})

	w := doJSON(t, h, http.MethodPost, "/api/tachos/", map[string]any{"codigo": "TCH-001", "nombre": "Patio", "ubicacion_lat": -12.05, "ubicacion_lon": -77.04})
	require.Equal(t, http.StatusCreated, w.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("imagen", "foto.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("tacho_codigo", "TCH-001"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/ai/detect/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[entity.ClassificationResult](t, w)
	require.True(t, res.Success)
	require.Equal(t, entity.CategoryRecyclable, res.Primary.Category)
	require.InDelta(t, 91.0, res.Primary.Confidence, 1e-9)
	require.Equal(t, entity.SignalRecyclable, res.Actuation)
	require.NotZero(t, res.DetectionID)

	signal, err := c.ActuationService.Poll(context.Background(), "TCH-001")
	require.NoError(t, err)
	require.Equal(t, entity.SignalRecyclable, signal)

	w = doJSON(t, h, http.MethodGet, "/api/detecciones/?tacho=TCH-001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]entity.Detection](t, w)
	require.Len(t, list, 1)
	require.InDelta(t, -12.05, list[0].Latitude, 1e-9)
}

func TestDetect_JSONDataURIAlias(t *testing.T) {
	h, _ := newTestServer(t, &stubBackend{body: recyclableBody})

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	w := doJSON(t, h, http.MethodPost, "/api/ai/analizar/", map[string]any{"imagen": uri})
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[entity.ClassificationResult](t, w)
	require.True(t, res.Success)
	require.Zero(t, res.DetectionID)
}

func TestDetect_StatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
		body    map[string]any
		want    int
	}{
		{name: "missing image", backend: &stubBackend{body: recyclableBody}, body: map[string]any{}, want: http.StatusBadRequest},
		{name: "bad data uri", backend: &stubBackend{body: recyclableBody}, body: map[string]any{"imagen": "data:image/png;base64"}, want: http.StatusBadRequest},
		{name: "backend down", backend: &stubBackend{err: entity.ErrBackendUnavailable}, want: http.StatusServiceUnavailable},
		{name: "weights missing", backend: &stubBackend{err: entity.ErrWeightsNotFound}, want: http.StatusInternalServerError},
		{name: "no detection", backend: &stubBackend{body: `{"outputs":[]}`}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, tt.backend)
			body := tt.body
			if body == nil {
				body = map[string]any{"imagen": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))}
			}
			w := doJSON(t, h, http.MethodPost, "/api/ai/detect/", body)
			require.Equal(t, tt.want, w.Code, w.Body.String())

			res := decode[entity.ClassificationResult](t, w)
			require.False(t, res.Success)
		})
	}
}

func TestESP32_SubmitThenPoll(t *testing.T) {
	h, _ := newTestServer(t, &stubBackend{})

	w := doJSON(t, h, http.MethodPost, "/api/iot/esp32/detect/", map[string]any{"tacho_id": 7, "clasificacion": "Orgánicos"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true,"parpadeos":1}`, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/api/iot/esp32/detect/", map[string]any{"tacho_id": "7"})
	require.JSONEq(t, `{"ok":true,"parpadeos":1}`, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/api/iot/esp32/detect/", map[string]any{"tacho_id": "7"})
	require.JSONEq(t, `{"ok":true,"parpadeos":0}`, w.Body.String())

	r := httptest.NewRequest(http.MethodPost, "/api/iot/esp32/detect/", strings.NewReader("clasificacion=organico"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "tacho_id")
}

func TestDetections_GetDeleteExport(t *testing.T) {
	h, c := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	require.NoError(t, c.BinService.Save(ctx, &entity.Bin{Code: "TCH-9"}))

	// Пустой ответ модели: детекция не пишется
	res, err := c.ClassificationService.Classify(ctx, classifyReq(t, "TCH-9"))
	require.NoError(t, err)
	require.True(t, res.NoDetection)

	w := doJSON(t, h, http.MethodGet, "/api/detecciones/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/detecciones/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/detecciones/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/detecciones/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	require.NotEmpty(t, w.Body.Bytes())
}

func TestDetections_DeleteIsSoft(t *testing.T) {
	h, c := newTestServer(t, &stubBackend{body: recyclableBody})
	ctx := context.Background()

	require.NoError(t, c.BinService.Save(ctx, &entity.Bin{Code: "TCH-2"}))
	res, err := c.ClassificationService.Classify(ctx, classifyReq(t, "TCH-2"))
	require.NoError(t, err)
	require.NotZero(t, res.DetectionID)

	path := "/api/detecciones/" + strconv.FormatInt(res.DetectionID, 10)
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, path, nil).Code)
	require.Equal(t, http.StatusNoContent, doJSON(t, h, http.MethodDelete, path, nil).Code)
	require.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, path, nil).Code)
}

func TestBins(t *testing.T) {
	h, _ := newTestServer(t, &stubBackend{})

	w := doJSON(t, h, http.MethodPost, "/api/tachos/", map[string]any{"codigo": " "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/tachos/", map[string]any{"codigo": "TCH-5", "nivel_llenado": 40})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/tachos/TCH-5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bin := decode[entity.Bin](t, w)
	require.Equal(t, 40, bin.FillLevel)
	require.Equal(t, entity.BinStatusActive, bin.Status)

	w = doJSON(t, h, http.MethodGet, "/api/tachos/", nil)
	require.Len(t, decode[[]entity.Bin](t, w), 1)

	require.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/api/tachos/NOPE", nil).Code)
}

func TestAIHealthAndInfo(t *testing.T) {
	h, _ := newTestServer(t, &stubBackend{err: entity.ErrBackendUnavailable})

	w := doJSON(t, h, http.MethodGet, "/api/ai/status/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	require.Equal(t, false, health["available"])
	require.Equal(t, "roboflow", health["backend"])

	w = doJSON(t, h, http.MethodGet, "/api/ai/info/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[struct {
		Success bool `json:"success"`
		Model   struct {
			Categories []string `json:"categories"`
		} `json:"model"`
	}](t, w)
	require.True(t, info.Success)
	require.ElementsMatch(t, []string{"organico", "reciclable", "inorganico"}, info.Model.Categories)

	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/health", nil).Code)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":" x ","c":null}`), &v))
	require.Equal(t, flexString("12"), v.A)
	require.Equal(t, flexString("x"), v.B)
	require.Equal(t, flexString(""), v.C)
}
