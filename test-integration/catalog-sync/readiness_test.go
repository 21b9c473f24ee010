package integration

import (
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-catalog-sync/internal/api"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
	"github.com/stacklok/toolhive-catalog-sync/test-integration/catalog-sync/helpers"
)

var _ = Describe("Readiness Gate Integration", Label("readiness"), func() {
	const connectorName = "blocked"

	var serverHelper *helpers.ServerTestHelper

	BeforeEach(func() {
		connector := helpers.NewConnector(connectorName, config.SourceConfig{
			Static: &config.StaticConfig{Resources: []config.ResourceConfig{{Name: "orders", Fingerprint: "v1"}}},
		})
		connector.Readiness.RequiredTypes = []string{"NeverRegistered"}
		connector.Readiness.MaxAttempts = 2

		configPath := helpers.WriteConfigYAML(GinkgoT().TempDir(), connector)
		serverHelper = helpers.NewServerTestHelper(ctx, configPath)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
	})

	It("stops the connector once the retries are spent", func() {
		Eventually(func() coordinator.State {
			st, err := serverHelper.ConnectorStatus(connectorName)
			if err != nil {
				return ""
			}
			return st.State
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(coordinator.StateStopped))

		st, err := serverHelper.ConnectorStatus(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Cycle).NotTo(BeNil())
		Expect(st.Cycle.Phase).To(Equal(status.CyclePhaseStopped))
		Expect(serverHelper.Elements(connectorName, helpers.TestResourceType)).To(BeEmpty())

		By("reporting the stopped connector on /readiness")
		resp, err := serverHelper.GetReadiness()
		Expect(err).NotTo(HaveOccurred())
		defer func() {
			_ = resp.Body.Close()
		}()
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))

		var readiness api.ReadinessResponse
		Expect(json.NewDecoder(resp.Body).Decode(&readiness)).To(Succeed())
		Expect(readiness.Stopped).To(ConsistOf(connectorName))

		By("rejecting refresh requests")
		refresh, err := serverHelper.Refresh(connectorName)
		Expect(err).NotTo(HaveOccurred())
		Expect(refresh.Body.Close()).To(Succeed())
		Expect(refresh.StatusCode).To(Equal(http.StatusConflict))
	})

	It("keeps serving health checks", func() {
		resp, err := serverHelper.GetHealth()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Body.Close()).To(Succeed())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})
})
