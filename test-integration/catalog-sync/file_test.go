package integration

import (
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/test-integration/catalog-sync/helpers"
)

var _ = Describe("File Source Integration", Label("file"), func() {
	const connectorName = "files"

	var (
		tempDir      string
		manifestPath string
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		manifestPath = filepath.Join(tempDir, "manifest.yaml")
		helpers.WriteManifest(manifestPath,
			config.ResourceConfig{Name: "orders", Fingerprint: "v1", Attributes: map[string]string{"owner": "sales"}},
			config.ResourceConfig{Name: "customers", Fingerprint: "v1"},
		)

		configPath := helpers.WriteConfigYAML(tempDir,
			helpers.NewConnector(connectorName, config.SourceConfig{File: &config.FileConfig{Path: manifestPath}}),
		)

		serverHelper = helpers.NewServerTestHelper(ctx, configPath)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
	})

	It("waits for its metadata type, then catalogs every resource", func() {
		Consistently(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 500*time.Millisecond, 100*time.Millisecond).Should(BeZero())

		Expect(serverHelper.Store().RegisterTypes(ctx, []string{helpers.TestResourceType})).To(Succeed())

		Eventually(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(2))

		elements := serverHelper.Elements(connectorName, helpers.TestResourceType)
		Expect(elements["orders"].Status).To(Equal(catalog.StatusActive))
		Expect(elements["orders"].Fingerprint).To(Equal("v1"))
		Expect(elements["orders"].Attributes).To(HaveKeyWithValue("owner", "sales"))
		Expect(elements["orders"].QualifiedName).To(Equal(catalog.QualifiedName(connectorName, helpers.TestResourceType, "orders")))

		Eventually(func() status.CyclePhase {
			st, err := serverHelper.ConnectorStatus(connectorName)
			if err != nil || st.Cycle == nil {
				return ""
			}
			return st.Cycle.Phase
		}, 5*time.Second, 100*time.Millisecond).Should(Equal(status.CyclePhaseComplete))
	})

	It("applies manifest changes on refresh", func() {
		Expect(serverHelper.Store().RegisterTypes(ctx, []string{helpers.TestResourceType})).To(Succeed())
		Eventually(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(2))

		By("changing one resource and removing the other")
		helpers.WriteManifest(manifestPath,
			config.ResourceConfig{Name: "orders", Fingerprint: "v2", Attributes: map[string]string{"owner": "finance"}},
		)

		resp, err := serverHelper.Refresh(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		Eventually(func() string {
			return serverHelper.Elements(connectorName, helpers.TestResourceType)["orders"].Fingerprint
		}, 10*time.Second, 100*time.Millisecond).Should(Equal("v2"))

		elements := serverHelper.Elements(connectorName, helpers.TestResourceType)
		Expect(elements["orders"].Attributes).To(HaveKeyWithValue("owner", "finance"))
		Expect(elements["customers"].Status).To(Equal(catalog.StatusArchived))

		By("bringing the removed resource back")
		helpers.WriteManifest(manifestPath,
			config.ResourceConfig{Name: "orders", Fingerprint: "v2", Attributes: map[string]string{"owner": "finance"}},
			config.ResourceConfig{Name: "customers", Fingerprint: "v3"},
		)
		resp, err = serverHelper.Refresh(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())

		Eventually(func() catalog.ElementStatus {
			return serverHelper.Elements(connectorName, helpers.TestResourceType)["customers"].Status
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(catalog.StatusActive))
	})

	It("returns 404 for an unknown connector", func() {
		resp, err := serverHelper.Refresh("unknown")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
