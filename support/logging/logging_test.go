// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package logging

import (
	"testing"

	"go.uber.org/zap"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logging", func() {
	It("returns Nop for a nil logger", func() {
		Expect(Must(nil)).To(Equal(Nop))
	})

	It("returns a non-nil logger unchanged", func() {
		l := zap.NewNop().Sugar()
		Expect(Must(l)).To(BeIdenticalTo(l))
	})

	It("builds production and development loggers", func() {
		for _, verbose := range []bool{false, true} {
			l, sync, err := New(verbose)
			Expect(err).ToNot(HaveOccurred())
			Expect(l).ToNot(BeNil())
			l.Debugf("verbose=%v", verbose)
			sync()
		}
	})
})

func TestLogging(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logging Tests")
}
