package catalog

const (
	AchievementFirstBlood      = "FIRST_BLOOD"
	AchievementStreakMaster    = "STREAK_MASTER"
	AchievementShadowCommander = "SHADOW_COMMANDER"
)

type Achievement struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Threshold   int    `json:"threshold"`
}

var achievements = []Achievement{
	{Code: AchievementFirstBlood, Title: "First Blood", Description: "Complete your first quest", Threshold: 1},
	{Code: AchievementStreakMaster, Title: "Streak Master", Description: "Reach a 7-day streak", Threshold: 7},
	{Code: AchievementShadowCommander, Title: "Shadow Commander", Description: "Unlock the Shadow Army skill", Threshold: 1},
}

func Achievements() []Achievement {
	out := make([]Achievement, len(achievements))
	copy(out, achievements)
	return out
}

func FindAchievement(code string) (Achievement, bool) {
	for _, a := range achievements {
		if a.Code == code {
			return a, true
		}
	}
	return Achievement{}, false
}

type SkillKind string

const (
	SkillActive  SkillKind = "ACTIVE"
	SkillPassive SkillKind = "PASSIVE"
)

const SkillShadowArmy = "shadow-army"

type Skill struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tier        int       `json:"tier"`
	Kind        SkillKind `json:"type"`
	UnlockLevel int       `json:"unlockLevel"`
	ManaCost    int       `json:"manaCost"`
}

var skills = []Skill{
	{Code: "shadow-step", Name: "Shadow Step", Description: "Teleport behind enemies instantly.", Tier: 1, Kind: SkillActive, UnlockLevel: 1, ManaCost: 10},
	{Code: "iron-will", Name: "Iron Will", Description: "Passive vitality increase by 15%.", Tier: 1, Kind: SkillPassive, UnlockLevel: 3},
	{Code: "mana-burst", Name: "Mana Burst", Description: "Overload your mana for bonus damage.", Tier: 2, Kind: SkillActive, UnlockLevel: 5, ManaCost: 25},
	{Code: SkillShadowArmy, Name: "Shadow Army", Description: "Raise fallen enemies as shadow soldiers.", Tier: 3, Kind: SkillActive, UnlockLevel: 20, ManaCost: 50},
}

func Skills() []Skill {
	out := make([]Skill, len(skills))
	copy(out, skills)
	return out
}

func FindSkill(code string) (Skill, bool) {
	for _, s := range skills {
		if s.Code == code {
			return s, true
		}
	}
	return Skill{}, false
}
