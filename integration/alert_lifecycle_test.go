package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bloodlink/internal/domain"
)

// createResult mirrors the creation response payload.
type createResult struct {
	Alert    *domain.Alert          `json:"alert"`
	Dispatch domain.DispatchSummary `json:"dispatch"`
}

var _ = Describe("Alert Lifecycle", func() {
	var e *engine

	newAlertPayload := func() map[string]interface{} {
		return map[string]interface{}{
			"facility_id": "bank-origin",
			"blood_type":  "O+",
			"urgency":     "high",
			"origin":      map[string]float64{"latitude": 3.87, "longitude": 11.52},
			"radius_km":   10,
		}
	}

	createAlert := func() *domain.Alert {
		resp, err := e.request("POST", "/v1/alerts", "doc-1", newAlertPayload())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var result createResult
		Expect(parseData(resp, &result)).To(Succeed())
		return result.Alert
	}

	BeforeEach(func() {
		e = newEngine(time.Hour)
		e.seedClinic()
	})

	Context("when a doctor raises an O+ alert", func() {
		It("notifies only compatible donors in range and tracks their responses", func() {
			resp, err := e.request("POST", "/v1/alerts", "doc-1", newAlertPayload())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var result createResult
			Expect(parseData(resp, &result)).To(Succeed())
			Expect(result.Alert.Status).To(Equal(domain.AlertStatusActive))
			Expect(result.Dispatch.Total).To(Equal(2), "two O+ donors are in range")
			Expect(result.Dispatch.Successful).To(Equal(2))
			Expect(result.Dispatch.Failed).To(Equal(0))

			// The out-of-range and incompatible donors got nothing
			for _, id := range []string{"donor-far", "donor-ab"} {
				resp, err := e.request("GET", "/v1/notifications", id, nil)
				Expect(err).NotTo(HaveOccurred())
				var records []*domain.Notification
				Expect(parseData(resp, &records)).To(Succeed())
				Expect(records).To(BeEmpty())
			}

			// A donor accepts through the API
			resp, err = e.request("POST", "/v1/alerts/"+result.Alert.ID+"/responses", "donor-1",
				map[string]string{"status": "accepted", "message": "on my way"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var updated domain.Alert
			Expect(parseData(resp, &updated)).To(Succeed())
			Expect(updated.Stats.TotalAccepted).To(Equal(1))
			Expect(updated.Stats.TotalNotified).To(Equal(1))

			// The doctor hears about the accept exactly once
			resp, err = e.request("GET", "/v1/notifications", "doc-1", nil)
			Expect(err).NotTo(HaveOccurred())
			var docRecords []*domain.Notification
			Expect(parseData(resp, &docRecords)).To(Succeed())

			accepted := 0
			for _, r := range docRecords {
				if r.Type == domain.EventDonorAccepted {
					accepted++
					Expect(r.Body).To(ContainSubstring("Nadia"))
				}
			}
			Expect(accepted).To(Equal(1))
		})

		It("rejects an incompatible donor's response", func() {
			alert := createAlert()

			resp, err := e.request("POST", "/v1/alerts/"+alert.ID+"/responses", "donor-ab",
				map[string]string{"status": "accepted"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))

			code, err := parseError(resp)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal("CONFLICT"))
		})

		It("lets a repeated response overwrite the previous decision", func() {
			alert := createAlert()

			_, err := e.request("POST", "/v1/alerts/"+alert.ID+"/responses", "donor-1",
				map[string]string{"status": "accepted"})
			Expect(err).NotTo(HaveOccurred())

			resp, err := e.request("POST", "/v1/alerts/"+alert.ID+"/responses", "donor-1",
				map[string]string{"status": "declined", "message": "cannot make it"})
			Expect(err).NotTo(HaveOccurred())

			var updated domain.Alert
			Expect(parseData(resp, &updated)).To(Succeed())
			Expect(updated.Responses).To(HaveLen(1))
			Expect(updated.Responses[0].Status).To(Equal(domain.ResponseDeclined))
			Expect(updated.Stats.TotalAccepted).To(Equal(0))
			Expect(updated.Stats.TotalDeclined).To(Equal(1))
		})
	})

	Context("when the doctor closes the alert", func() {
		It("thanks accepted donors on fulfillment", func() {
			alert := createAlert()

			_, err := e.request("POST", "/v1/alerts/"+alert.ID+"/responses", "donor-1",
				map[string]string{"status": "accepted"})
			Expect(err).NotTo(HaveOccurred())

			resp, err := e.request("POST", "/v1/alerts/"+alert.ID+"/fulfill", "doc-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var closed domain.Alert
			Expect(parseData(resp, &closed)).To(Succeed())
			Expect(closed.Status).To(Equal(domain.AlertStatusFulfilled))
			Expect(closed.ClosedAt).NotTo(BeNil())

			resp, err = e.request("GET", "/v1/notifications", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			var records []*domain.Notification
			Expect(parseData(resp, &records)).To(Succeed())

			confirmed := 0
			for _, r := range records {
				if r.Type == domain.EventDonationConfirmed {
					confirmed++
				}
			}
			Expect(confirmed).To(Equal(1))
		})

		It("supersedes unread notifications on cancellation", func() {
			alert := createAlert()

			resp, err := e.request("POST", "/v1/alerts/"+alert.ID+"/cancel", "doc-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = e.request("GET", "/v1/notifications", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			var records []*domain.Notification
			Expect(parseData(resp, &records)).To(Succeed())

			for _, r := range records {
				if r.Type == domain.EventNewAlert {
					Expect(r.Superseded).To(BeTrue(), "stale alert notification should be superseded")
				}
			}
		})

		It("refuses closes from anyone but the requesting doctor", func() {
			alert := createAlert()

			resp, err := e.request("POST", "/v1/alerts/"+alert.ID+"/cancel", "donor-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp, err = e.request("POST", "/v1/alerts/"+alert.ID+"/fulfill", "bank-origin", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})

	Context("when an alert outlives its TTL", func() {
		It("expires on read and rejects further responses", func() {
			e = newEngine(time.Millisecond)
			e.seedClinic()
			alert := createAlert()

			time.Sleep(5 * time.Millisecond)

			resp, err := e.request("GET", "/v1/alerts/"+alert.ID, "", nil)
			Expect(err).NotTo(HaveOccurred())

			var got domain.Alert
			Expect(parseData(resp, &got)).To(Succeed())
			Expect(got.Status).To(Equal(domain.AlertStatusExpired))

			resp, err = e.request("POST", "/v1/alerts/"+alert.ID+"/responses", "donor-1",
				map[string]string{"status": "accepted"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})
	})
})
