package entity

// UserState состояние оператора в диалоге с ботом
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingPhoto UserState = "awaiting_photo" // Тачо выбран, ждём фото отходов
	StateProcessing    UserState = "processing"     // Идёт классификация
)

// User оператор тачо в Telegram
type User struct {
	ID      int64     // Telegram User ID
	ChatID  int64     // Telegram Chat ID
	State   UserState // Текущее состояние
	BinCode string    // Выбранный тачо
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SelectBin запоминает тачо и переводит в ожидание фото.
func (u *User) SelectBin(code string) {
	u.BinCode = code
	u.State = StateAwaitingPhoto
}
