package integration

import (
	"net/http"
	"time"

	gogit "github.com/go-git/go-git/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/git"
	"github.com/stacklok/toolhive-catalog-sync/test-integration/catalog-sync/helpers"
)

var _ = Describe("Git Source Integration", Label("git"), func() {
	const connectorName = "datasets"

	var (
		repoDir      string
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		repoDir = git.CreateTestRepo(GinkgoT(), map[string]string{
			"datasets/orders.parquet":   "v1",
			"datasets/payments.parquet": "v1",
			"README.md":                 "datasets",
		})

		connector := helpers.NewConnector(connectorName, config.SourceConfig{
			Git: &config.GitConfig{Repository: repoDir, Path: "datasets"},
		})
		configPath := helpers.WriteConfigYAML(GinkgoT().TempDir(), connector)

		serverHelper = helpers.NewServerTestHelper(ctx, configPath)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
		Expect(serverHelper.Store().RegisterTypes(ctx, []string{helpers.TestResourceType})).To(Succeed())
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
	})

	It("follows commits to the repository", func() {
		Eventually(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(2))

		before := serverHelper.Elements(connectorName, helpers.TestResourceType)
		Expect(before["orders.parquet"].Attributes).To(HaveKeyWithValue("path", "datasets/orders.parquet"))

		repo, err := gogit.PlainOpen(repoDir)
		Expect(err).NotTo(HaveOccurred())
		git.CommitFiles(GinkgoT(), repo, repoDir, map[string]string{
			"datasets/orders.parquet":   "v2",
			"datasets/payments.parquet": "",
			"datasets/refunds.parquet":  "v1",
		})

		resp, err := serverHelper.Refresh(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		Eventually(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(3))

		Eventually(func() catalog.ElementStatus {
			return serverHelper.Elements(connectorName, helpers.TestResourceType)["payments.parquet"].Status
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(catalog.StatusArchived))

		after := serverHelper.Elements(connectorName, helpers.TestResourceType)
		Expect(after["orders.parquet"].Fingerprint).NotTo(Equal(before["orders.parquet"].Fingerprint))
		Expect(after["orders.parquet"].Version).To(BeNumerically(">", before["orders.parquet"].Version))
		Expect(after["refunds.parquet"].Status).To(Equal(catalog.StatusActive))
	})
})
