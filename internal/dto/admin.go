package dto

// AdminStats aggregates the counters shown on the admin dashboard.
type AdminStats struct {
	TotalUsers        int `json:"totalUsers"`
	TotalDoctors      int `json:"totalDoctors"`
	ApprovedDoctors   int `json:"approvedDoctors"`
	PendingDoctors    int `json:"pendingDoctors"`
	TotalAppointments int `json:"totalAppointments"`
}
