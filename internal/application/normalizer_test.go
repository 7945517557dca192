package app

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"ecotachos/internal/domain/entity"
)

func remote(body string) *entity.RawResponse {
	return &entity.RawResponse{Backend: entity.BackendRoboflowWorkflow, Scale: entity.ScaleFraction, Body: []byte(body)}
}

func requireDescending(t *testing.T, preds []entity.RawPrediction) {
	t.Helper()
	for i := 1; i < len(preds); i++ {
		require.GreaterOrEqual(t, preds[i-1].Confidence, preds[i].Confidence)
	}
}

func TestNormalizeResponse_Shapes(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)

	tests := []struct {
		name string
		raw  *entity.RawResponse
		want []entity.RawPrediction
	}{
		{
			name: "nested predictions.predictions",
			raw:  remote(`{"outputs":[{"predictions":{"image":{"width":640},"predictions":[{"class":"organico","confidence":0.3},{"class":"reciclable","confidence":0.8}]}}]}`),
			want: []entity.RawPrediction{{Label: "reciclable", Confidence: 80}, {Label: "organico", Confidence: 30}},
		},
		{
			name: "flat predictions",
			raw:  remote(`{"outputs":[{"predictions":[{"class":"inorganico","confidence":0.55}]}]}`),
			want: []entity.RawPrediction{{Label: "inorganico", Confidence: 55}},
		},
		{
			name: "detections",
			raw:  remote(`{"outputs":[{"detections":[{"label":"organico","score":0.2},{"label":"reciclable","score":0.7}]}]}`),
			want: []entity.RawPrediction{{Label: "reciclable", Confidence: 70}, {Label: "organico", Confidence: 20}},
		},
		{
			name: "top",
			raw:  remote(`{"outputs":[{"top":[{"class_name":"organico","prob":0.6},{"predicted_class":"inorganico","prob":"0.4"}]}]}`),
			want: []entity.RawPrediction{{Label: "organico", Confidence: 60}, {Label: "inorganico", Confidence: 40}},
		},
		{
			name: "local top-k",
			raw: &entity.RawResponse{Backend: entity.BackendLocal, Scale: entity.ScaleFraction, TopK: []entity.LabelScore{
				{Label: "reciclable", Score: 0.9}, {Label: "organico", Score: 0.07}, {Label: "inorganico", Score: 0.03},
			}},
			want: []entity.RawPrediction{{Label: "reciclable", Confidence: 90}, {Label: "organico", Confidence: 7}, {Label: "inorganico", Confidence: 3}},
		},
		{
			name: "percent scale is kept",
			raw:  &entity.RawResponse{Scale: entity.ScalePercent, Body: []byte(`{"outputs":[{"predictions":[{"class":"organico","confidence":87.5}]}]}`)},
			want: []entity.RawPrediction{{Label: "organico", Confidence: 87.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeResponse(tt.raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Fatalf("NormalizeResponse mismatch (-want +got):\n%s", diff)
			}
			requireDescending(t, got)
		})
	}
}

func TestNormalizeResponse_UnionOfShapes(t *testing.T) {
	body := `{"outputs":[
		{"predictions":[{"class":"organico","confidence":0.4}], "detections":[{"class":"reciclable","confidence":0.9}]},
		{"top":[{"class":"inorganico","confidence":0.6}]}
	]}`
	got, err := NormalizeResponse(remote(body))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"reciclable", "inorganico", "organico"}, labels(got))
}

func TestNormalizeResponse_StableTies(t *testing.T) {
	got, err := NormalizeResponse(remote(`{"outputs":[{"predictions":[{"class":"a","confidence":0.5},{"class":"b","confidence":0.5},{"class":"c","confidence":0.9}]}]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, labels(got))
}

func TestNormalizeResponse_ConfidencePriority(t *testing.T) {
	got, err := NormalizeResponse(remote(`{"outputs":[{"predictions":[
		{"class":"a","confidence":0.1,"score":0.9,"prob":0.9},
		{"class":"b","score":0.5,"prob":0.9},
		{"class":"c"}
	]}]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "c"}, labels(got))
	require.InDelta(t, 10.0, got[1].Confidence, 1e-9)
	require.Zero(t, got[2].Confidence)
}

func TestNormalizeResponse_Empty(t *testing.T) {
	for _, body := range []string{`{"outputs":[]}`, `{}`, `{"outputs":[{"predictions":{"predictions":[]}}]}`, `{"outputs":[{"top":"organico"}]}`} {
		got, err := NormalizeResponse(remote(body))
		require.NoError(t, err, body)
		require.Empty(t, got, body)
	}
}

func TestNormalizeResponse_Malformed(t *testing.T) {
	_, err := NormalizeResponse(remote(`{"outputs":`))
	require.ErrorIs(t, err, entity.ErrBackendMalformedResponse)

	_, err = NormalizeResponse(remote(`{"outputs":"nope"}`))
	require.ErrorIs(t, err, entity.ErrBackendMalformedResponse)
}

func labels(preds []entity.RawPrediction) []string {
	out := make([]string, 0, len(preds))
	for _, p := range preds {
		out = append(out, p.Label)
	}
	return out
}
