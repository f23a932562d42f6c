package notification

import "golang.org/x/text/language"

// Message keys of the shipped vendors.
const (
	KeyEDF          = "notification edf"
	KeyLeclercDrive = "notification leclercdrive"
	KeyDefault      = "notification default"
)

// Forms holds the singular and plural text of a message. Both take the
// bill count as their single %d argument.
type Forms struct {
	One   string `yaml:"one"`
	Other string `yaml:"other"`
}

// Messages maps a language to its message forms by key.
type Messages map[language.Tag]map[string]Forms

func defaultMessages() Messages {
	return Messages{
		language.French: {
			KeyEDF: {
				One:   "%d nouvelle facture EDF a été téléchargée",
				Other: "%d nouvelles factures EDF ont été téléchargées",
			},
			KeyLeclercDrive: {
				One:   "%d nouvelle facture Leclerc Drive a été téléchargée",
				Other: "%d nouvelles factures Leclerc Drive ont été téléchargées",
			},
			KeyDefault: {
				One:   "%d nouvelle facture a été téléchargée",
				Other: "%d nouvelles factures ont été téléchargées",
			},
		},
		language.English: {
			KeyEDF: {
				One:   "%d new EDF bill has been downloaded",
				Other: "%d new EDF bills have been downloaded",
			},
			KeyLeclercDrive: {
				One:   "%d new Leclerc Drive bill has been downloaded",
				Other: "%d new Leclerc Drive bills have been downloaded",
			},
			KeyDefault: {
				One:   "%d new bill has been downloaded",
				Other: "%d new bills have been downloaded",
			},
		},
	}
}
