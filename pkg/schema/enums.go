package schema

import "slices"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type Relationship string

const (
	RelGirlfriend Relationship = "Girlfriend"
	RelBoyfriend  Relationship = "Boyfriend"
	RelWife       Relationship = "Wife"
	RelHusband    Relationship = "Husband"
	RelFriend     Relationship = "Friend"
	RelBestFriend Relationship = "Best Friend"
	RelColleague  Relationship = "Colleague"
	RelPartner    Relationship = "Partner"
	RelTeacher    Relationship = "Teacher"
	RelStudent    Relationship = "Student"
	RelCrush      Relationship = "Crush"
	RelLover      Relationship = "Lover"
)

// Personality is a closed enumeration. Prompt addenda key off these values,
// so membership checks iterate the enum rather than matching substrings.
type Personality string

const (
	Innocent        Personality = "Innocent"
	Calm            Personality = "Calm"
	Caring          Personality = "Caring"
	Talkative       Personality = "Talkative"
	Intelligent     Personality = "Intelligent"
	CreativeThinker Personality = "Creative Thinker"
	Shy             Personality = "Shy"
	Moody           Personality = "Moody"
	Humorous        Personality = "Humorous"
	Sarcastic       Personality = "Sarcastic"
	Flirty          Personality = "Flirty"
	Romantic        Personality = "Romantic"
	Naughty         Personality = "Naughty"
	DirtyTalker     Personality = "Dirty Talker"
	Dominant        Personality = "Dominant"
	Submissive      Personality = "Submissive"
	BadBoy          Personality = "Bad Boy"
	BadGirl         Personality = "Bad Girl"
	Possessive      Personality = "Possessive"
	Jealous         Personality = "Jealous"
	ShortTempered   Personality = "Short Tempered"
	LessTalkative   Personality = "Less Talkative"
	Understandable  Personality = "Understandable"
	TaxConsultant   Personality = "Tax Consultant"
	Coder           Personality = "Coder"
	ExpertAllFields Personality = "Expert in all fields"
)

// Personalities returns every member of the enum in declaration order.
func Personalities() []Personality {
	return []Personality{
		Innocent, Calm, Caring, Talkative, Intelligent, CreativeThinker,
		Shy, Moody, Humorous, Sarcastic, Flirty, Romantic, Naughty,
		DirtyTalker, Dominant, Submissive, BadBoy, BadGirl, Possessive,
		Jealous, ShortTempered, LessTalkative, Understandable,
		TaxConsultant, Coder, ExpertAllFields,
	}
}

func (p Personality) Valid() bool {
	return slices.Contains(Personalities(), p)
}
