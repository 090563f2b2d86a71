// Package domain defines the persistence models for neighbourhood
// communities (RTs), shared items, requests with their pickup codes, and the
// social records around them. These types are mapped with GORM and form the
// core data layer of the exchange backend.
package domain

import "time"

// RT is a neighbourhood community. Every item and member belongs to one RT.
type RT struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(120);not null;uniqueIndex:ux_rt_location,priority:1"`
	Kelurahan string    `json:"kelurahan" gorm:"type:varchar(120);not null;uniqueIndex:ux_rt_location,priority:2"`
	Kecamatan string    `json:"kecamatan" gorm:"type:varchar(120);not null;uniqueIndex:ux_rt_location,priority:3"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for RT.
func (RT) TableName() string { return "rts" }

// Profile carries the public details of a user. ID is the authenticated
// subject, not a generated value.
type Profile struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(120);not null"`
	Phone     string    `json:"phone"      gorm:"type:varchar(32)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Member ties a profile to exactly one RT with a role.
type Member struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ProfileID string    `json:"profile_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	RTID      string    `json:"rt_id"      gorm:"type:char(36);not null;index"`
	Role      Role      `json:"role"       gorm:"type:varchar(16);not null;default:'member';check:role IN ('admin','member')"`
	JoinedAt  time.Time `json:"joined_at"  gorm:"not null"`

	RT RT `json:"-" gorm:"foreignKey:RTID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Member.
func (Member) TableName() string { return "members" }

// Item is something a donor offers to the neighbours of their RT.
type Item struct {
	ID          string        `json:"id"          gorm:"type:char(36);primaryKey"`
	DonorID     string        `json:"donor_id"    gorm:"type:varchar(64);not null;index"`
	RTID        string        `json:"rt_id"       gorm:"type:char(36);not null;index:idx_rt_items,priority:1"`
	Title       string        `json:"title"       gorm:"type:varchar(200);not null"`
	Description string        `json:"description" gorm:"type:text"`
	Category    string        `json:"category"    gorm:"type:varchar(64);not null;default:'other'"`
	Condition   ItemCondition `json:"condition"   gorm:"type:varchar(16);not null;default:'good';check:condition IN ('new','like_new','good','fair')"`
	Quantity    int           `json:"quantity"    gorm:"not null;default:1;check:quantity > 0"`
	Unit        string        `json:"unit"        gorm:"type:varchar(32);not null;default:'pcs'"`
	PhotoPath   string        `json:"photo_path,omitempty" gorm:"type:text"`
	Status      ItemStatus    `json:"status"      gorm:"type:varchar(16);not null;default:'available';check:status IN ('available','requested','reserved','collected')"`
	CreatedAt   time.Time     `json:"created_at"  gorm:"index:idx_rt_items,priority:2"`
	UpdatedAt   time.Time     `json:"updated_at"`

	RT RT `json:"-" gorm:"foreignKey:RTID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Item.
func (Item) TableName() string { return "items" }

// Request is one person's ask for one item. PickupCode is assigned on
// acceptance; PickupCodeUsedAt is stamped once, at redemption. The CHECK
// constraints keep both in step with Status.
type Request struct {
	ID                  string        `json:"id"           gorm:"type:char(36);primaryKey"`
	ItemID              string        `json:"item_id"      gorm:"type:char(36);not null;index:idx_item_requests,priority:1"`
	RequesterID         string        `json:"requester_id" gorm:"type:varchar(64);not null;index"`
	Status              RequestStatus `json:"status"       gorm:"type:varchar(16);not null;default:'pending';index:idx_item_requests,priority:2;check:status IN ('pending','accepted','rejected','collected')"`
	Message             string        `json:"message,omitempty"        gorm:"type:text"`
	PickupAddress       string        `json:"pickup_address,omitempty" gorm:"type:text"`
	ScheduledPickupDate *time.Time    `json:"scheduled_pickup_date,omitempty"`
	ReplyMessage        string        `json:"reply_message,omitempty"  gorm:"type:text"`
	RepliedAt           *time.Time    `json:"replied_at,omitempty"`
	PickupCode          *string       `json:"pickup_code,omitempty"    gorm:"type:varchar(64);uniqueIndex;check:chk_requests_pickup_code,pickup_code IS NULL OR status IN ('accepted','collected')"`
	PickupCodeUsedAt    *time.Time    `json:"pickup_code_used_at,omitempty" gorm:"check:chk_requests_pickup_used,pickup_code_used_at IS NULL OR status = 'collected'"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	// Item is preloaded on reads. Requests are cascade-deleted with their item.
	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Comment is a free-text remark on an item.
type Comment struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ItemID    string    `json:"item_id"    gorm:"type:char(36);not null;index:idx_item_comments,priority:1"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_item_comments,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	Item Item `json:"-" gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Like records that a user liked an item. One per (item, user).
type Like struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ItemID    string    `json:"item_id"    gorm:"type:char(36);not null;uniqueIndex:ux_like_item_user,priority:1"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_like_item_user,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	Item Item `json:"-" gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string { return "likes" }

// Notification is an inbox entry for a single user.
type Notification struct {
	ID          string           `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string           `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_user_notifications,priority:1"`
	Type        NotificationType `json:"type"         gorm:"type:varchar(16);not null;check:type IN ('like','comment','request','accept','reject','reply')"`
	Title       string           `json:"title"        gorm:"type:varchar(200);not null"`
	Message     string           `json:"message"      gorm:"type:text"`
	RelatedID   string           `json:"related_id,omitempty"   gorm:"type:char(36)"`
	RelatedType RelatedType      `json:"related_type,omitempty" gorm:"type:varchar(16)"`
	IsRead      bool             `json:"is_read"      gorm:"not null;default:false"`
	CreatedAt   time.Time        `json:"created_at"   gorm:"index:idx_user_notifications,priority:2"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// All lists every model in migration order.
func All() []any {
	return []any{
		&RT{}, &Profile{}, &Member{}, &Item{}, &Request{},
		&Comment{}, &Like{}, &Notification{}, &Idempotency{},
	}
}
