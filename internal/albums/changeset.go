package albums

// ChangeSet is the delta an editor computed against the album state it last
// observed. Membership fields are merge-protected; the scalar fields are not.
type ChangeSet struct {
	AddedCollaboratorEmails   []string `json:"addedCollaboratorEmails,omitempty" validate:"omitempty,dive,email"`
	RemovedCollaboratorEmails []string `json:"removedCollaboratorEmails,omitempty" validate:"omitempty,dive,required"`
	AddedViewerEmails         []string `json:"addedViewerEmails,omitempty" validate:"omitempty,dive,email"`
	RemovedViewerEmails       []string `json:"removedViewerEmails,omitempty" validate:"omitempty,dive,required"`
	AddedPhotoIDs             []string `json:"addedMemberResourceIds,omitempty" validate:"omitempty,dive,required"`
	RemovedPhotoIDs           []string `json:"removedMemberResourceIds,omitempty" validate:"omitempty,dive,required"`

	Name          *string           `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   *string           `json:"description,omitempty" validate:"omitempty,max=2000"`
	CoverImageRef *string           `json:"coverImageRef,omitempty" validate:"omitempty,max=1024"`
	Captions      map[string]string `json:"captionsByMemberId,omitempty"`
}

// HasMembershipChanges reports whether any merge-protected field is touched.
func (c ChangeSet) HasMembershipChanges() bool {
	return len(c.AddedCollaboratorEmails) > 0 || len(c.RemovedCollaboratorEmails) > 0 ||
		len(c.AddedViewerEmails) > 0 || len(c.RemovedViewerEmails) > 0 ||
		len(c.AddedPhotoIDs) > 0 || len(c.RemovedPhotoIDs) > 0
}

// HasDetailChanges reports whether any overwrite field is set.
func (c ChangeSet) HasDetailChanges() bool {
	return c.Name != nil || c.Description != nil || c.CoverImageRef != nil || c.Captions != nil
}

// IsEmpty reports whether the change set changes nothing.
func (c ChangeSet) IsEmpty() bool {
	return !c.HasMembershipChanges() && !c.HasDetailChanges()
}

// Details extracts the overwrite fields.
func (c ChangeSet) Details() Details {
	return Details{Name: c.Name, Description: c.Description, CoverImageRef: c.CoverImageRef, Captions: c.Captions}
}

// WithoutEmail drops email from the invite additions. Owners hold implicit
// access and are never listed as collaborators or viewers.
func (c ChangeSet) WithoutEmail(email string) ChangeSet {
	if email == "" {
		return c
	}
	c.AddedCollaboratorEmails = without(c.AddedCollaboratorEmails, email)
	c.AddedViewerEmails = without(c.AddedViewerEmails, email)
	return c
}

func without(values []string, drop string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
