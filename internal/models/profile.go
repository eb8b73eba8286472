package models

// UserProfile is the single user's profile. Bio and the uploaded document
// content are fed to the AI as context when generating help.
type UserProfile struct {
	Name            string        `json:"name" bson:"name"`
	Email           string        `json:"email" bson:"email"`
	Bio             string        `json:"bio" bson:"bio"`
	DocumentName    string        `json:"documentName,omitempty" bson:"documentName,omitempty"`
	DocumentContent string        `json:"documentContent,omitempty" bson:"documentContent,omitempty"`
	Character       CharacterType `json:"character" bson:"character"`
}
