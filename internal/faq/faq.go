// Package faq stores support knowledge-base entries and matches incoming
// questions against them with approximate string similarity.
package faq

// Entry is a single knowledge-base question with its canned answer.
// Answers may contain Telegram Markdown.
type Entry struct {
	Question string `yaml:"question" db:"question"`
	Answer   string `yaml:"answer" db:"answer"`
}

// Defaults returns the built-in knowledge base used when neither a database
// nor a FAQ file is configured.
func Defaults() []Entry {
	return []Entry{
		{
			Question: "how to reset password",
			Answer:   "You can reset your password here: https://example.com/reset",
		},
		{
			Question: "where is my order",
			Answer:   "Track your order here: https://example.com/orders",
		},
		{
			Question: "how to fund",
			Answer: "**To fund your accounts simply go through the following procedures;**\n\n" +
				"1. Login into your account if you don’t have one create before proceeding unto the next step.\n\n" +
				"2. After logging click the icon with three dashes by your left and tap on add funds 👍\n\n" +
				"3. You’ll be redirected to another page where you’d put in the amount you’d like to fund ✅\n\n" +
				"4. Afterwards you’ll be taken to a different page where you can either select manual payment or online payment method\n\n" +
				"6. Pick whichever you’d prefer and pay the exact amount shown on screen (For manual payment make sure to add the reference given to you)\n\n" +
				"7. Now once all that is done your payment will be automatically added in a matter of seconds 💯\n\n" +
				"Incase you still need some help or more assistance you can watch our tutorial on how to fund your acct below ⬇️\n\n" +
				"https://t.me/Bigtunez1/39",
		},
	}
}
