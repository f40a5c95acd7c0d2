// Package mock provides a test double for ai.Embedder.
//
// MockEmbedder runs without any external service. By default it returns a
// deterministic unit vector derived from an FNV hash of the text, so equal
// texts always have similarity 1.0. Tests that need precise similarities
// inject EmbedTextFunc and EmbedTextsFunc.
//
//	m := mock.NewMockEmbedder()
//	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0, 0}, nil
//	}
//	count := m.CallCount()
package mock
