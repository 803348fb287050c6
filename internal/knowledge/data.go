package knowledge

// defaultEntries maps symptom keywords to candidate diseases. Entry order
// and disease order within an entry are the tie-break priority.
var defaultEntries = []SymptomEntry{
	{Symptom: "두통", Diseases: []string{"편두통", "긴장성 두통", "군발성 두통"}},
	{Symptom: "복통", Diseases: []string{"위염", "장염", "과민성 대장 증후군"}},
	{Symptom: "열", Diseases: []string{"감기", "독감", "코로나19"}},
	{Symptom: "기침", Diseases: []string{"감기", "기관지염", "코로나19"}},
	{Symptom: "어지러움", Diseases: []string{"빈혈", "현기증", "저혈압"}},
	{Symptom: "피로", Diseases: []string{"만성피로증후군", "빈혈", "갑상선 기능 저하증"}},
	{Symptom: "메스꺼움", Diseases: []string{"위염", "멀미", "편두통"}},
	{Symptom: "설사", Diseases: []string{"장염", "과민성 대장 증후군", "식중독"}},
	{Symptom: "근육통", Diseases: []string{"근육염", "독감", "섬유근육통"}},
	{Symptom: "발열", Diseases: []string{"감기", "독감", "폐렴"}},
	{Symptom: "인후통", Diseases: []string{"인두염", "편도염", "후두염"}},
	{Symptom: "콧물", Diseases: []string{"비염", "감기", "알레르기"}},
	{Symptom: "발진", Diseases: []string{"알레르기", "습진", "수두"}},
	{Symptom: "관절통", Diseases: []string{"관절염", "류마티스 관절염", "통풍"}},
}

// defaultSuggestions holds care suggestions for common diseases. Diseases
// absent here fall back to the generic list.
var defaultSuggestions = map[string][]string{
	"편두통":    {"충분한 수면 취하기", "스트레스 관리하기", "정기적인 운동하기"},
	"긴장성 두통": {"목과 어깨 스트레칭", "스트레스 관리", "따뜻한 목욕"},
	"위염":     {"자극적인 음식 피하기", "작은 양 자주 먹기", "금주하기"},
	"장염":     {"충분한 수분 섭취", "소화가 쉬운 음식 먹기", "휴식 취하기"},
	"감기":     {"충분한 휴식", "수분 섭취", "비타민 C 섭취"},
	"독감":     {"집에서 휴식", "해열제 복용 고려", "충분한 수분 섭취"},
	"빈혈":     {"철분이 풍부한 음식 섭취", "비타민 C와 함께 철분 섭취", "과로 피하기"},
	"저혈압":    {"천천히 일어나기", "작은 양 자주 먹기", "충분한 수분 섭취"},
	"알레르기":   {"알레르기 유발 물질 피하기", "항히스타민제 고려", "의사와 상담"},
}

// defaultGenerics are the general care suggestions used to backfill when
// fewer than five disease-specific suggestions are available.
var defaultGenerics = []string{
	"충분한 휴식과 수면을 취하세요",
	"물을 충분히 마시세요",
	"균형 잡힌 식단을 유지하세요",
	"규칙적인 운동을 하세요",
	"스트레스를 관리하세요",
}
