package model

import "encoding/json"

// Role values as the backend reports them.
const (
	RoleRecruiter = "recruiter"
	RoleCandidate = "candidate"
)

// StatusDocumentsRequested is the only raw status value the dashboard
// matches exactly: it gates the candidate document upload flow.
const StatusDocumentsRequested = "documents_requested"

// User is the authenticated account as returned by the backend. The
// dashboard never mutates it.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at"`
}

// Tokens is the access/refresh pair issued at login. It is replaced on
// each login and deleted on logout or any 401 from the backend.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Envelope is the uniform response wrapper used by every backend
// endpoint. Data is deferred so each call site can decode its own
// payload type.
type Envelope struct {
	Message    string              `json:"message,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	Data       json.RawMessage     `json:"data,omitempty"`
	Status     string              `json:"status"`
	StatusCode int                 `json:"status_code,omitempty"`
}

// LoginData is the payload of a successful login response.
type LoginData struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

// BGVRequest is one verification request with all owned collections.
// Optional identity fields are pointers so absent values can be omitted
// from rendered views rather than shown blank.
type BGVRequest struct {
	ID                        int     `json:"id"`
	User                      User    `json:"user"`
	Recruiter                 User    `json:"recruiter"`
	FirstName                 string  `json:"first_name"`
	LastName                  string  `json:"last_name"`
	Email                     string  `json:"email"`
	PhoneNumber               string  `json:"phone_number"`
	DateOfBirth               *string `json:"date_of_birth"`
	About                     *string `json:"about"`
	MaritalStatus             *string `json:"marital_status"`
	Hobbies                   *string `json:"hobbies"`
	CountryOfCitizenship      *string `json:"country_of_citizenship"`
	CountryOfResidence        *string `json:"country_of_residence"`
	Role                      string  `json:"role"`
	TotalWorkExperience       int     `json:"total_work_experience"`
	TotalWorkExperienceMonths int     `json:"total_work_experience_months"`
	ResumeFile                *string `json:"resume_file"`
	Status                    string  `json:"status"`
	CreatedAt                 string  `json:"created_at"`
	UpdatedAt                 string  `json:"updated_at"`

	WorkExperiences []WorkExperience `json:"work_experiences"`
	Educations      []Education      `json:"educations"`
	Skills          []Skill          `json:"skills"`
	Projects        []Project        `json:"projects"`
	Documents       []Document       `json:"documents"`
	AgentLogs       []AgentLog       `json:"agent_logs"`
}

// FullName joins the denormalized name fields for display.
func (b *BGVRequest) FullName() string {
	switch {
	case b.FirstName != "" && b.LastName != "":
		return b.FirstName + " " + b.LastName
	case b.FirstName != "":
		return b.FirstName
	default:
		return b.LastName
	}
}

// DocumentsRequested reports whether the candidate is currently being
// asked to upload identity documents.
func (b *BGVRequest) DocumentsRequested() bool {
	return b.Status == StatusDocumentsRequested
}

type WorkExperience struct {
	ID          int     `json:"id"`
	Role        string  `json:"role"`
	CompanyName string  `json:"company_name"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"` // nil means the role is current
	Description string  `json:"description"`
}

type Education struct {
	ID           int    `json:"id"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	Institute    string `json:"institute"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	GPA          string `json:"gpa"`
}

type Skill struct {
	ID                int    `json:"id"`
	SkillName         string `json:"skill_name"`
	YearsOfExperience int    `json:"years_of_experience"`
	Competency        string `json:"competency"` // High, Medium, Low
}

type Project struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Link        *string  `json:"link"`
	RoleName    string   `json:"role_name"`
	SkillNames  []string `json:"skill_names"`
}

// Document types required from candidates.
const (
	DocumentTypePAN     = "pan"
	DocumentTypeAadhaar = "aadhaar"
)

type Document struct {
	ID           int    `json:"id"`
	DocumentType string `json:"document_type"`
	File         string `json:"file"`
	UploadedAt   string `json:"uploaded_at"`
}

// AgentLog is one entry of the read-only audit trail written by the
// external extraction agent. Entries render in the order the backend
// returns them.
type AgentLog struct {
	ID        int             `json:"id"`
	Action    string          `json:"action"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt string          `json:"created_at"`
}
