package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bloodlink/internal/domain"
)

var _ = Describe("HTTP API", func() {
	var e *engine

	BeforeEach(func() {
		e = newEngine(time.Hour)
		e.seedClinic()
	})

	Describe("health check", func() {
		It("reports healthy", func() {
			resp, err := e.request("GET", "/healthz", "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var data map[string]string
			Expect(parseData(resp, &data)).To(Succeed())
			Expect(data["status"]).To(Equal("healthy"))
		})
	})

	Describe("alert creation validation", func() {
		It("rejects a request without an identity header", func() {
			resp, err := e.request("POST", "/v1/alerts", "", map[string]interface{}{
				"blood_type": "O+",
				"origin":     map[string]float64{"latitude": 3.87, "longitude": 11.52},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("maps validation failures to VALIDATION_FAILED", func() {
			resp, err := e.request("POST", "/v1/alerts", "doc-1", map[string]interface{}{
				"blood_type": "C+",
				"origin":     map[string]float64{"latitude": 3.87, "longitude": 11.52},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			code, err := parseError(resp)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal("VALIDATION_FAILED"))
		})

		It("refuses creation by a non-doctor", func() {
			resp, err := e.request("POST", "/v1/alerts", "donor-1", map[string]interface{}{
				"blood_type": "O+",
				"origin":     map[string]float64{"latitude": 3.87, "longitude": 11.52},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("returns 404 for an unknown alert", func() {
			resp, err := e.request("GET", "/v1/alerts/no-such-alert", "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("nearby alerts", func() {
		It("orders active alerts by urgency then recency", func() {
			for _, urgency := range []string{"low", "critical", "medium"} {
				resp, err := e.request("POST", "/v1/alerts", "doc-1", map[string]interface{}{
					"blood_type": "O+",
					"urgency":    urgency,
					"origin":     map[string]float64{"latitude": 3.87, "longitude": 11.52},
					"radius_km":  10,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			}

			resp, err := e.request("GET", "/v1/alerts/nearby?latitude=3.88&longitude=11.52&max_distance_km=20", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var alerts []*domain.Alert
			Expect(parseData(resp, &alerts)).To(Succeed())
			Expect(alerts).To(HaveLen(3))
			Expect(alerts[0].Urgency).To(Equal(domain.UrgencyCritical))
			Expect(alerts[1].Urgency).To(Equal(domain.UrgencyMedium))
			Expect(alerts[2].Urgency).To(Equal(domain.UrgencyLow))
		})

		It("requires coordinates", func() {
			resp, err := e.request("GET", "/v1/alerts/nearby", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("propagation", func() {
		It("reaches the nearest facilities and never repeats one", func() {
			near := domain.Location{Latitude: 3.915, Longitude: 11.52}
			mid := domain.Location{Latitude: 3.90, Longitude: 11.52}
			e.actors.Put(&domain.Actor{ID: "bank-a", Role: domain.RoleFacility, Location: &mid, Active: true, PushToken: "tok-a"})
			e.actors.Put(&domain.Actor{ID: "bank-b", Role: domain.RoleFacility, Location: &near, Active: true, PushToken: "tok-b"})

			resp, err := e.request("POST", "/v1/alerts", "doc-1", map[string]interface{}{
				"facility_id": "bank-origin",
				"blood_type":  "O+",
				"origin":      map[string]float64{"latitude": 3.87, "longitude": 11.52},
				"radius_km":   10,
			})
			Expect(err).NotTo(HaveOccurred())
			var created createResult
			Expect(parseData(resp, &created)).To(Succeed())
			alertID := created.Alert.ID

			// An uninvolved facility may not propagate
			resp, err = e.request("POST", "/v1/alerts/"+alertID+"/propagate", "bank-a", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp, err = e.request("POST", "/v1/alerts/"+alertID+"/propagate", "bank-origin", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result struct {
				Alert    *domain.Alert          `json:"alert"`
				Reached  []string               `json:"reached"`
				Dispatch domain.DispatchSummary `json:"dispatch"`
			}
			Expect(parseData(resp, &result)).To(Succeed())
			Expect(result.Reached).To(ConsistOf("bank-a", "bank-b"))
			Expect(result.Dispatch.Successful).To(Equal(2))

			// A second round from a reached facility finds nobody new
			resp, err = e.request("POST", "/v1/alerts/"+alertID+"/propagate", "bank-a", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(parseData(resp, &result)).To(Succeed())
			Expect(result.Reached).To(BeEmpty())

			// Reached facilities can re-notify donors around the origin
			resp, err = e.request("POST", "/v1/alerts/"+alertID+"/notify-donors", "bank-b", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var summary domain.DispatchSummary
			Expect(parseData(resp, &summary)).To(Succeed())
			Expect(summary.Total).To(Equal(2))
		})
	})

	Describe("notification log", func() {
		It("lists newest first and lets the recipient mark records read", func() {
			resp, err := e.request("POST", "/v1/alerts", "doc-1", map[string]interface{}{
				"blood_type": "O+",
				"origin":     map[string]float64{"latitude": 3.87, "longitude": 11.52},
				"radius_km":  10,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			resp, err = e.request("GET", "/v1/notifications", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			var records []*domain.Notification
			Expect(parseData(resp, &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Read).To(BeFalse())

			// Another actor may not mark it read
			resp, err = e.request("POST", "/v1/notifications/"+records[0].ID+"/read", "donor-2", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp, err = e.request("POST", "/v1/notifications/"+records[0].ID+"/read", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp, err = e.request("GET", "/v1/notifications", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(parseData(resp, &records)).To(Succeed())
			Expect(records[0].Read).To(BeTrue())
		})
	})

	Describe("push tokens", func() {
		It("lets an actor manage only its own token", func() {
			resp, err := e.request("PUT", "/v1/actors/donor-1/push-token", "donor-2",
				map[string]string{"push_token": "stolen"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp, err = e.request("PUT", "/v1/actors/donor-1/push-token", "donor-1",
				map[string]string{"push_token": ""})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			// With the token cleared the donor is no longer reachable
			resp, err = e.request("POST", "/v1/alerts", "doc-1", map[string]interface{}{
				"blood_type": "O+",
				"origin":     map[string]float64{"latitude": 3.87, "longitude": 11.52},
				"radius_km":  10,
			})
			Expect(err).NotTo(HaveOccurred())
			var result createResult
			Expect(parseData(resp, &result)).To(Succeed())
			Expect(result.Dispatch.Total).To(Equal(1), "only donor-2 remains reachable")
		})
	})
})
