package env_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"nodegraph/src/helper/env"
)

var _ = Describe("env", func() {
	It("falls back to defaults for unset variables", func() {
		Expect(env.GetString("NODEGRAPH_TEST_UNSET", "fallback")).To(Equal("fallback"))
		Expect(env.GetInt("NODEGRAPH_TEST_UNSET", 7)).To(Equal(7))
		Expect(env.GetBool("NODEGRAPH_TEST_UNSET", true)).To(BeTrue())
		Expect(env.GetSeconds("NODEGRAPH_TEST_UNSET", 120)).To(Equal(2 * time.Minute))
	})

	It("reads values that are set", func() {
		// ARRANGE
		GinkgoT().Setenv("NODEGRAPH_TEST_BOOL", "false")
		GinkgoT().Setenv("NODEGRAPH_TEST_SECONDS", "30")

		// ASSERT
		Expect(env.GetBool("NODEGRAPH_TEST_BOOL", true)).To(BeFalse())
		Expect(env.GetSeconds("NODEGRAPH_TEST_SECONDS", 120)).To(Equal(30 * time.Second))
	})

	It("ignores values that do not parse", func() {
		// ARRANGE
		GinkgoT().Setenv("NODEGRAPH_TEST_BOOL", "maybe")
		GinkgoT().Setenv("NODEGRAPH_TEST_INT", "ten")

		// ASSERT
		Expect(env.GetBool("NODEGRAPH_TEST_BOOL", true)).To(BeTrue())
		Expect(env.GetInt("NODEGRAPH_TEST_INT", 10)).To(Equal(10))
	})

	It("MustGetString panics on an empty variable", func() {
		Expect(func() { env.MustGetString("NODEGRAPH_TEST_UNSET") }).To(Panic())
	})
})
