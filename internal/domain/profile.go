package domain

import "time"

const (
	GenderWoman     = "woman"
	GenderMan       = "man"
	GenderNonBinary = "nonbinary"

	MaxPhotos    = 6
	MaxInterests = 10
)

type Photo struct {
	FileID   string `json:"file_id" dynamodbav:"file_id"`
	URL      string `json:"url" dynamodbav:"url"`
	Position int    `json:"position" dynamodbav:"position"`
}

type Location struct {
	Lat       float64   `json:"lat" dynamodbav:"lat"`
	Lng       float64   `json:"lng" dynamodbav:"lng"`
	City      string    `json:"city,omitempty" dynamodbav:"city"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Preferences drive which candidates discovery returns.
type Preferences struct {
	InterestedIn  []string `json:"interested_in" dynamodbav:"interested_in"`
	AgeMin        int      `json:"age_min" dynamodbav:"age_min"`
	AgeMax        int      `json:"age_max" dynamodbav:"age_max"`
	MaxDistanceKM int      `json:"max_distance_km" dynamodbav:"max_distance_km"`
}

// DefaultPreferences are applied to freshly created profiles.
func DefaultPreferences() Preferences {
	return Preferences{AgeMin: MinimumAge, AgeMax: 99, MaxDistanceKM: 100}
}

type Profile struct {
	UserID      string      `json:"user_id" dynamodbav:"user_id"`
	Name        string      `json:"name" dynamodbav:"name"`
	Birthdate   time.Time   `json:"birthdate" dynamodbav:"birthdate"`
	Bio         string      `json:"bio" dynamodbav:"bio"`
	Gender      string      `json:"gender" dynamodbav:"gender"`
	Photos      []Photo     `json:"photos" dynamodbav:"photos"`
	Location    *Location   `json:"location,omitempty" dynamodbav:"location"`
	Interests   []string    `json:"interests" dynamodbav:"interests"`
	Verified    bool        `json:"verified" dynamodbav:"verified"`
	Preferences Preferences `json:"preferences" dynamodbav:"preferences"`
	Enable      bool        `json:"enable" dynamodbav:"enable"`
	CreatedAt   time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// NewProfile builds the empty, enabled profile created alongside an account.
func NewProfile(u *User, gender string, now time.Time) *Profile {
	return &Profile{
		UserID:      u.UserID,
		Name:        u.FirstName,
		Birthdate:   u.Birthday,
		Gender:      gender,
		Photos:      []Photo{},
		Interests:   []string{},
		Verified:    u.Verified,
		Preferences: DefaultPreferences(),
		Enable:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Age is the profile owner's current age in whole years.
func (p *Profile) Age() int { return AgeAt(p.Birthdate, time.Now()) }

// PublicProfile is what other users see: no preferences, no precise location.
type PublicProfile struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Bio        string   `json:"bio"`
	Gender     string   `json:"gender"`
	Photos     []Photo  `json:"photos"`
	City       string   `json:"city,omitempty"`
	Interests  []string `json:"interests"`
	Verified   bool     `json:"verified"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
	Boosted    bool     `json:"boosted,omitempty"`
}

// Public projects p into its publicly visible shape.
func (p *Profile) Public() PublicProfile {
	pp := PublicProfile{
		UserID:    p.UserID,
		Name:      p.Name,
		Age:       p.Age(),
		Bio:       p.Bio,
		Gender:    p.Gender,
		Photos:    p.Photos,
		Interests: p.Interests,
		Verified:  p.Verified,
	}
	if pp.Photos == nil {
		pp.Photos = []Photo{}
	}
	if pp.Interests == nil {
		pp.Interests = []string{}
	}
	if p.Location != nil {
		pp.City = p.Location.City
	}
	return pp
}

type UpdateProfileRequest struct {
	Name          *string   `json:"name" validate:"omitempty,min=1,max=50"`
	Birthdate     *string   `json:"birthdate"` // YYYY-MM-DD
	Bio           *string   `json:"bio" validate:"omitempty,max=500"`
	Gender        *string   `json:"gender" validate:"omitempty,oneof=woman man nonbinary"`
	Interests     *[]string `json:"interests" validate:"omitempty,max=10,dive,min=1,max=30"`
	InterestedIn  *[]string `json:"interested_in" validate:"omitempty,dive,oneof=woman man nonbinary"`
	AgeMin        *int      `json:"age_min" validate:"omitempty,min=18,max=99"`
	AgeMax        *int      `json:"age_max" validate:"omitempty,min=18,max=99"`
	MaxDistanceKM *int      `json:"max_distance_km" validate:"omitempty,min=1,max=500"`
}

type UpdateLocationRequest struct {
	Lat  *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng  *float64 `json:"lng" validate:"required,min=-180,max=180"`
	City string   `json:"city" validate:"max=80"`
}
