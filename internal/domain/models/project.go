// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is one outreach engagement tracked on the dashboard.
//
// ClientInfo and IdealCustomerProfile are stored as nested documents. Edits
// address a single leaf and must never overwrite its siblings.
type Project struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"project_name" json:"project_name"`
	Info           string             `bson:"project_info" json:"project_info"`
	SpecialistName string             `bson:"specialist_name" json:"specialist_name"`

	// Progress is a percentage. Under normal operation it is one of the step
	// thresholds (0, 20, 40, 60, 80, 100); the store does not reject others.
	Progress       int `bson:"progress" json:"progress"`
	EmailsSent     int `bson:"emails_sent" json:"emails_sent"`
	MeetingsBooked int `bson:"meetings_booked" json:"meetings_booked"`

	ClientInfo           ClientInfo           `bson:"client_info" json:"client_info"`
	IdealCustomerProfile IdealCustomerProfile `bson:"ideal_customer_profile" json:"ideal_customer_profile"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ClientInfo describes the client contact for a project.
type ClientInfo struct {
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Company string `bson:"company" json:"company"`
}

// IdealCustomerProfile holds the six free-text targeting lists.
type IdealCustomerProfile struct {
	JobTitles      []string `bson:"job_titles" json:"job_titles"`
	Industry       []string `bson:"industry" json:"industry"`
	Location       []string `bson:"location" json:"location"`
	CompanySize    []string `bson:"company_size" json:"company_size"`
	MeetingLinks   []string `bson:"meeting_links" json:"meeting_links"`
	CampaignOffers []string `bson:"campaign_offers" json:"campaign_offers"`
}

// Section returns the list stored under the given ICP key and whether the
// key is known.
func (icp IdealCustomerProfile) Section(key string) ([]string, bool) {
	switch key {
	case "job_titles":
		return icp.JobTitles, true
	case "industry":
		return icp.Industry, true
	case "location":
		return icp.Location, true
	case "company_size":
		return icp.CompanySize, true
	case "meeting_links":
		return icp.MeetingLinks, true
	case "campaign_offers":
		return icp.CampaignOffers, true
	}
	return nil, false
}

// SetSection replaces the list stored under key. Unknown keys are ignored
// and reported as false.
func (icp *IdealCustomerProfile) SetSection(key string, items []string) bool {
	switch key {
	case "job_titles":
		icp.JobTitles = items
	case "industry":
		icp.Industry = items
	case "location":
		icp.Location = items
	case "company_size":
		icp.CompanySize = items
	case "meeting_links":
		icp.MeetingLinks = items
	case "campaign_offers":
		icp.CampaignOffers = items
	default:
		return false
	}
	return true
}

// ICPSections lists the ICP keys in display order.
var ICPSections = []string{
	"job_titles",
	"industry",
	"location",
	"company_size",
	"meeting_links",
	"campaign_offers",
}

// EmptyICP returns an ICP with every list present but empty, so new
// projects store arrays rather than nulls.
func EmptyICP() IdealCustomerProfile {
	return IdealCustomerProfile{
		JobTitles:      []string{},
		Industry:       []string{},
		Location:       []string{},
		CompanySize:    []string{},
		MeetingLinks:   []string{},
		CampaignOffers: []string{},
	}
}
