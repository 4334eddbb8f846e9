package llmclient_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/model"
)

type fakeBackend struct {
	invokeCalls int
	failTimes   int
	permanent   bool
	reply       string
}

func (f *fakeBackend) Invoke(ctx context.Context, messages []llmclient.Message) (string, error) {
	f.invokeCalls++
	if f.invokeCalls <= f.failTimes {
		if f.permanent {
			return "", &model.LLMError{Transient: false, Message: "boom"}
		}
		return "", &model.LLMError{Transient: true, Message: "rate limited"}
	}
	return f.reply, nil
}

func (f *fakeBackend) Structured(ctx context.Context, req llmclient.StructuredRequest) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

var _ = Describe("Wrap (resilience layer)", func() {
	It("retries a transient failure and eventually succeeds", func() {
		backend := &fakeBackend{failTimes: 2, reply: "ok"}
		wrapped := llmclient.Wrap(backend, llmclient.ResilienceConfig{RequestsPerSecond: 1000, Burst: 10})

		got, err := wrapped.Invoke(context.Background(), []llmclient.Message{{Role: llmclient.RoleUser, Content: "hi"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("ok"))
		Expect(backend.invokeCalls).To(BeNumerically(">", 1))
	})

	It("does not retry a permanent failure", func() {
		backend := &fakeBackend{failTimes: 1, permanent: true, reply: "ok"}
		wrapped := llmclient.Wrap(backend, llmclient.ResilienceConfig{RequestsPerSecond: 1000, Burst: 10})

		_, err := wrapped.Invoke(context.Background(), []llmclient.Message{{Role: llmclient.RoleUser, Content: "hi"}})
		Expect(err).To(HaveOccurred())
		Expect(backend.invokeCalls).To(Equal(1))
	})
})
