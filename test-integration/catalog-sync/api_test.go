package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/test-integration/catalog-sync/helpers"
)

var _ = Describe("API Source Integration", Label("api"), func() {
	const connectorName = "inventory"

	var (
		mockAPI      *helpers.MockInventoryAPI
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		mockAPI = helpers.NewMockInventoryAPI(
			helpers.APIItem{Name: "orders", ETag: "e1", Owner: "sales"},
			helpers.APIItem{Name: "invoices", ETag: "e1", Owner: "finance", Tags: map[string]string{"tier": "gold"}},
		)

		tempDir := GinkgoT().TempDir()
		connector := helpers.NewConnector(connectorName, config.SourceConfig{
			API: &config.APIConfig{
				Endpoint:         mockAPI.Endpoint(),
				ItemsPath:        "data.items",
				FingerprintField: "etag",
				AttributeFields: map[string]string{
					"owner": "owner",
					"tier":  "tags.tier",
				},
				Timeout: "2s",
			},
		})
		configPath := helpers.WriteConfigYAML(tempDir, connector)

		serverHelper = helpers.NewServerTestHelper(ctx, configPath)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
		Expect(serverHelper.Store().RegisterTypes(ctx, []string{helpers.TestResourceType})).To(Succeed())
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		mockAPI.Close()
	})

	It("catalogs the inventory items with their attributes", func() {
		Eventually(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(2))

		elements := serverHelper.Elements(connectorName, helpers.TestResourceType)
		Expect(elements["orders"].Fingerprint).To(Equal("e1"))
		Expect(elements["orders"].Attributes).To(HaveKeyWithValue("owner", "sales"))
		Expect(elements["invoices"].Attributes).To(HaveKeyWithValue("tier", "gold"))
		Expect(mockAPI.Requests()).To(BeNumerically(">=", 1))
	})

	It("leaves the catalog untouched when the API fails", func() {
		Eventually(func() int {
			return len(serverHelper.Elements(connectorName, helpers.TestResourceType))
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(2))
		before := serverHelper.Elements(connectorName, helpers.TestResourceType)

		mockAPI.SetStatus(http.StatusNotFound)
		resp, err := serverHelper.Refresh(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		Eventually(func() status.CyclePhase {
			st, err := serverHelper.ConnectorStatus(connectorName)
			if err != nil || st.Cycle == nil {
				return ""
			}
			return st.Cycle.Phase
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(status.CyclePhaseFailed))

		after := serverHelper.Elements(connectorName, helpers.TestResourceType)
		Expect(after).To(HaveLen(2))
		for name, element := range before {
			Expect(after[name].Status).To(Equal(element.Status))
			Expect(after[name].Version).To(Equal(element.Version))
		}

		By("recovering once the API is healthy again")
		mockAPI.SetStatus(http.StatusOK)
		mockAPI.SetItems(helpers.APIItem{Name: "orders", ETag: "e2", Owner: "sales"})
		resp, err = serverHelper.Refresh(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())

		Eventually(func() string {
			return serverHelper.Elements(connectorName, helpers.TestResourceType)["orders"].Fingerprint
		}, 10*time.Second, 100*time.Millisecond).Should(Equal("e2"))
	})
})
