package normalize

// Built-in lexicons for the optional person and location normalizers. These
// mirror the company normalizer mechanically; coverage is intentionally
// conservative to avoid rewriting ordinary words.

var personLexicon = []string{
	"Nguyễn Văn An",
	"Nguyễn Thị Lan",
	"Trần Văn Bình",
	"Trần Thị Hoa",
	"Lê Văn Cường",
	"Lê Thị Mai",
	"Phạm Văn Dũng",
	"Phạm Thị Hương",
	"Hoàng Văn Em",
	"Võ Thị Ngọc",
	"Đặng Văn Phúc",
	"Bùi Thị Quỳnh",
}

var locationLexicon = []string{
	"Thành phố Hồ Chí Minh",
	"TP. Hồ Chí Minh",
	"TP HCM",
	"Hồ Chí Minh",
	"Hà Nội",
	"Đà Nẵng",
	"Hải Phòng",
	"Cần Thơ",
	"Biên Hòa",
	"Nha Trang",
	"Huế",
	"Vũng Tàu",
	"Quy Nhơn",
	"Buôn Ma Thuột",
	"Thủ Đức",
	"Bình Dương",
	"Đồng Nai",
}
