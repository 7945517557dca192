package entity

// ImageInput входящее изображение: либо байты файла, либо data URI.
type ImageInput struct {
	Data     []byte // содержимое multipart-файла
	DataURI  string // data:image/...;base64,...
	Filename string
}

// Empty сообщает, что изображение не передано.
func (in ImageInput) Empty() bool {
	return len(in.Data) == 0 && in.DataURI == ""
}

// NormalizedImage перекодированное в JPEG изображение, живёт в рамках одного запроса.
type NormalizedImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
