package llmclient_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"agentcore.dev/core/internal/llmclient"
)

var _ = Describe("ExtractJSONValue", func() {
	DescribeTable("extracts the first balanced JSON value from free text",
		func(input, expected string) {
			got, err := llmclient.ExtractJSONValue(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(got)).To(MatchJSON(expected))
		},
		Entry("bare object", `{"completed":true,"confidence":0.9}`, `{"completed":true,"confidence":0.9}`),
		Entry("object wrapped in prose", "Sure, here's the result:\n```json\n{\"completed\":false}\n```\nLet me know if you need more.", `{"completed":false}`),
		Entry("array", `some text [1,2,3] trailing`, `[1,2,3]`),
		Entry("nested object", `prefix {"a":{"b":1}} suffix`, `{"a":{"b":1}}`),
		Entry("object containing braces inside a string", `{"note":"use {curly} braces"}`, `{"note":"use {curly} braces"}`),
	)

	It("fails when there is no JSON value at all", func() {
		_, err := llmclient.ExtractJSONValue("no json here")
		Expect(err).To(HaveOccurred())
	})

	It("fails on an unterminated JSON value", func() {
		_, err := llmclient.ExtractJSONValue(`{"a": 1`)
		Expect(err).To(HaveOccurred())
	})
})
