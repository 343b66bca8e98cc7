package forest

import "testing"

// A linearly separable toy set: positive when the first feature is large.
func toyData() ([][]float64, []float64) {
	samples := [][]float64{
		{1, 0}, {2, 1}, {3, 0}, {2, 2}, {1, 1},
		{8, 0}, {9, 1}, {10, 0}, {9, 2}, {8, 1},
	}
	labels := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	return samples, labels
}

func TestTrainSeparatesClasses(t *testing.T) {
	samples, labels := toyData()
	model, metrics := Train(samples, labels, Options{Trees: 20, Seed: 42})

	if metrics.Accuracy < 0.9 {
		t.Fatalf("expected training accuracy >= 0.9, got %v", metrics.Accuracy)
	}
	if p := model.Predict([]float64{1.5, 1}); p >= 0.5 {
		t.Fatalf("expected low score for negative sample, got %v", p)
	}
	if p := model.Predict([]float64{9, 1}); p < 0.5 {
		t.Fatalf("expected high score for positive sample, got %v", p)
	}
}

func TestTrainDeterministicForSeed(t *testing.T) {
	samples, labels := toyData()
	a, _ := Train(samples, labels, Options{Trees: 10, Seed: 42})
	b, _ := Train(samples, labels, Options{Trees: 10, Seed: 42})

	probe := []float64{5, 1}
	if a.Predict(probe) != b.Predict(probe) {
		t.Fatal("expected identical predictions for identical seeds")
	}
}

func TestPredictDeterministic(t *testing.T) {
	samples, labels := toyData()
	model, _ := Train(samples, labels, Options{Trees: 10, Seed: 1})

	probe := []float64{4, 2}
	first := model.Predict(probe)
	for i := 0; i < 5; i++ {
		if model.Predict(probe) != first {
			t.Fatal("repeated predictions diverged")
		}
	}
}

func TestTrainEmptyInput(t *testing.T) {
	model, metrics := Train(nil, nil, Options{})
	if len(model.Trees) != 0 {
		t.Fatalf("expected empty model, got %d trees", len(model.Trees))
	}
	if metrics.Accuracy != 0 {
		t.Fatalf("expected zero accuracy, got %v", metrics.Accuracy)
	}
}
