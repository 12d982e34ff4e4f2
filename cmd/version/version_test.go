package versioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/judgebench/cmd/version"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

var _ = Describe("NewVersionCmd", func() {
	It("prints the build version, commit and time", func() {
		cmd := versioncmder.NewVersionCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(Equal(
			"judgebench " + utils.Version + "\ncommit: " + utils.Sha + "\nbuilt: " + utils.Buildtime + "\n",
		))
	})

	It("rejects positional arguments", func() {
		cmd := versioncmder.NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})

		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
