package request

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/leajer/leajer/internal/rbac"
	"github.com/leajer/leajer/internal/shared"
)

var exportHeader = []string{
	"id", "retailerName", "productName", "description", "uniqueId",
	"status", "attendedBy", "createdAt", "updatedAt",
}

// Export writes the full request list as CSV, newest first. Owner only.
func (s *Service) Export(ctx context.Context, sess *shared.Session, w io.Writer) error {
	if err := requirePermission(sess, rbac.PermExportRequests); err != nil {
		return err
	}
	requests, err := s.repo.List(ctx, bearerOf(sess))
	if err != nil {
		return err
	}
	return WriteCSV(w, Filter(requests, ""))
}

// WriteCSV renders the records in export column order.
func WriteCSV(w io.Writer, requests []RetailerRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, req := range requests {
		attendedBy := ""
		if req.AttendedBy != nil {
			attendedBy = req.AttendedBy.Name
		}
		record := []string{
			req.ID,
			req.RetailerName,
			req.ProductName,
			req.Description,
			req.UniqueID,
			string(req.Status),
			attendedBy,
			req.CreatedAt.Format(time.RFC3339),
			req.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
