// Package integration contains end-to-end tests for BloodLink. They wire
// the full engine in memory mode and drive it through the HTTP API.
package integration

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BloodLink Integration Suite")
}
