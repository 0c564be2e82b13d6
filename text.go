package main

type Skill struct {
	Name     string
	Icon     string
	Gradient string
}

var (
	OwnerName     = "Lee Pro"
	OwnerInitials = "LP"
	OwnerKorean   = "이프로"
	Position      = "PM 서비스 기획 / FE Developer(jr)"
	Email         = "leepro@naver.com"
	Phone         = "+082 - 1234-5678"

	Introduce = `안녕하세요! CAD 서드파트 개발자 이프로입니다.
	사용자 중심의 서비스 기획과 프론트엔드 개발에 열정을 가지고 있으며,
	창의적이고 효율적인 솔루션을 제공하는 것을 목표로 합니다.
	지속적인 학습과 성장을 통해 더 나은 개발자로 발전해나가고 있습니다.`

	UploadHint = `프로필 사진 영역의 📷 버튼을 클릭하여 사진을 업로드하거나,
	public/profile.jpg 파일을 추가하세요.`

	PlaceholderGlyph = "👨‍💻"

	Skills = []Skill{
		{Name: "JavaScript", Icon: "🟨", Gradient: "from-yellow-400 to-orange-500"},
		{Name: "TypeScript", Icon: "🔷", Gradient: "from-blue-500 to-blue-700"},
		{Name: "React", Icon: "⚛️", Gradient: "from-cyan-400 to-blue-600"},
		{Name: "Tailwind", Icon: "🎨", Gradient: "from-teal-400 to-cyan-600"},
		{Name: "Premiere Pro", Icon: "🎬", Gradient: "from-purple-500 to-pink-600"},
	}
)
