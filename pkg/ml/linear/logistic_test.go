package linear

import "testing"

func TestTrainSeparatesClasses(t *testing.T) {
	samples := [][]float64{
		{0, 0}, {0.5, 0.2}, {1, 0.1}, {0.2, 0.9},
		{5, 4}, {6, 5}, {5.5, 4.2}, {6.2, 5.1},
	}
	labels := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	model, metrics := Train(samples, labels, Options{Epochs: 2000, LearningRate: 0.1})
	if metrics.Accuracy < 0.9 {
		t.Fatalf("expected accuracy >= 0.9, got %v", metrics.Accuracy)
	}
	if p := model.Predict([]float64{0.1, 0.1}); p >= 0.5 {
		t.Fatalf("expected low probability for negative sample, got %v", p)
	}
	if p := model.Predict([]float64{6, 5}); p < 0.5 {
		t.Fatalf("expected high probability for positive sample, got %v", p)
	}
}

func TestTrainEmptyInput(t *testing.T) {
	model, metrics := Train(nil, nil, Options{})
	if len(model.Coefficients) != 0 {
		t.Fatalf("expected empty model, got %v", model)
	}
	if metrics.Accuracy != 0 {
		t.Fatalf("expected zero metrics, got %v", metrics)
	}
}
